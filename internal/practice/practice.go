// Package practice holds the static profile of the medical practice: who the
// doctor is, where the clinic is, what can be booked, and how the chat
// assistant behaves.
package practice

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed practice.yaml
var defaultProfile []byte

type Doctor struct {
	Name              string   `yaml:"name" json:"name"`
	Title             string   `yaml:"title" json:"title"`
	Specialty         string   `yaml:"specialty" json:"specialty"`
	SubSpecialties    []string `yaml:"subSpecialties" json:"subSpecialties"`
	Languages         []string `yaml:"languages" json:"languages"`
	YearsOfExperience int      `yaml:"yearsOfExperience" json:"yearsOfExperience"`
}

type Address struct {
	Street     string `yaml:"street" json:"street"`
	City       string `yaml:"city" json:"city"`
	Country    string `yaml:"country" json:"country"`
	PostalCode string `yaml:"postalCode" json:"postalCode"`
}

type OpeningHours struct {
	Day   string `yaml:"day" json:"day"`
	Hours string `yaml:"hours" json:"hours"`
}

type Clinic struct {
	Name     string         `yaml:"name" json:"name"`
	Address  Address        `yaml:"address" json:"address"`
	Phone    string         `yaml:"phone" json:"phone"`
	Email    string         `yaml:"email" json:"email"`
	WhatsApp string         `yaml:"whatsapp" json:"whatsapp"`
	Hours    []OpeningHours `yaml:"hours" json:"hours"`
}

// Service is one bookable entry of the catalog
type Service struct {
	ID          string `yaml:"id" json:"id"`
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description"`
	Duration    string `yaml:"duration" json:"duration"`
	Price       string `yaml:"price" json:"price"`
}

type Condition struct {
	ID                string   `yaml:"id" json:"id"`
	Name              string   `yaml:"name" json:"name"`
	Category          string   `yaml:"category" json:"category"`
	Description       string   `yaml:"description" json:"description"`
	Symptoms          []string `yaml:"symptoms" json:"symptoms"`
	RelatedProcedures []string `yaml:"relatedProcedures" json:"relatedProcedures"`
}

type Insurance struct {
	Accepted       []string `yaml:"accepted" json:"accepted"`
	PaymentMethods []string `yaml:"paymentMethods" json:"paymentMethods"`
	Notes          string   `yaml:"notes" json:"notes"`
}

// Chatbot configures the chat relay
type Chatbot struct {
	Name                string   `yaml:"name"`
	Greeting            string   `yaml:"greeting"`
	SystemPrompt        string   `yaml:"systemPrompt"`
	AppointmentTriggers []string `yaml:"appointmentTriggers"`
	BookingPrompt       string   `yaml:"bookingPrompt"`
	FallbackReplies     []string `yaml:"fallbackReplies"`
}

// Profile is the whole practice configuration
type Profile struct {
	Doctor     Doctor      `yaml:"doctor"`
	Clinic     Clinic      `yaml:"clinic"`
	Services   []Service   `yaml:"services"`
	Conditions []Condition `yaml:"conditions"`
	Insurance  Insurance   `yaml:"insurance"`
	Chatbot    Chatbot     `yaml:"chatbot"`
}

// Default returns the embedded profile. It panics if the embedded document is
// invalid, which can only happen through a broken build.
func Default() *Profile {
	p, err := Parse(defaultProfile)
	if err != nil {
		panic(fmt.Sprintf("embedded practice profile: %v", err))
	}
	return p
}

// Load reads a profile from path, or returns the embedded default when path is empty
func Load(path string) (*Profile, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read practice profile: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML profile
func Parse(data []byte) (*Profile, error) {
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse practice profile: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Validate checks the fields the intake and chat paths depend on
func (p *Profile) Validate() error {
	if len(p.Services) == 0 {
		return fmt.Errorf("practice profile: at least one service is required")
	}
	seen := make(map[string]bool, len(p.Services))
	for _, s := range p.Services {
		if s.ID == "" {
			return fmt.Errorf("practice profile: service %q has no id", s.Name)
		}
		if seen[s.ID] {
			return fmt.Errorf("practice profile: duplicate service id %q", s.ID)
		}
		seen[s.ID] = true
	}
	if p.Chatbot.SystemPrompt == "" {
		return fmt.Errorf("practice profile: chatbot.systemPrompt is required")
	}
	if p.Chatbot.BookingPrompt == "" {
		return fmt.Errorf("practice profile: chatbot.bookingPrompt is required")
	}
	if len(p.Chatbot.FallbackReplies) == 0 {
		return fmt.Errorf("practice profile: at least one chatbot.fallbackReplies entry is required")
	}
	return nil
}

// Service looks up a catalog entry by id
func (p *Profile) Service(id string) (Service, bool) {
	for _, s := range p.Services {
		if s.ID == id {
			return s, true
		}
	}
	return Service{}, false
}

// HasService reports whether id names a catalog entry
func (p *Profile) HasService(id string) bool {
	_, ok := p.Service(id)
	return ok
}

// Condition looks up a treated condition by id
func (p *Profile) Condition(id string) (Condition, bool) {
	for _, c := range p.Conditions {
		if c.ID == id {
			return c, true
		}
	}
	return Condition{}, false
}
