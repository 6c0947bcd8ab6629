package postgres

import (
	"context"

	"github.com/goldhabermd/clinic-api/pkg/logger"
	"github.com/goldhabermd/clinic-api/pkg/metrics"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Client wraps a pgx connection pool with observability
type Client struct {
	pool *pgxpool.Pool
}

// NewClient wraps an already connected pool (see pkg/db.NewPool)
func NewClient(pool *pgxpool.Pool) *Client {
	stat := pool.Stat()
	logger.Info("PostgreSQL client initialized",
		zap.Int32("max_conns", stat.MaxConns()),
	)
	return &Client{pool: pool}
}

// Close closes the connection pool
func (c *Client) Close() {
	if c.pool != nil {
		c.pool.Close()
		logger.Info("PostgreSQL connection pool closed")
	}
}

// Pool returns the underlying connection pool for advanced usage
func (c *Client) Pool() *pgxpool.Pool {
	return c.pool
}

// Ping checks if the database connection is alive
func (c *Client) Ping(ctx context.Context) error {
	return c.pool.Ping(ctx)
}

// recordMetrics records database operation metrics
func recordMetrics(operation, status string, duration float64) {
	metrics.StoreOperationDuration.WithLabelValues("postgres", operation, status).Observe(duration)
	metrics.StoreOperationTotal.WithLabelValues("postgres", operation, status).Inc()
}
