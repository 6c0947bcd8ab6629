package models

import "github.com/goldhabermd/clinic-api/internal/practice"

// PracticeInfoResponse is the public summary of the practice
type PracticeInfoResponse struct {
	Doctor    practice.Doctor    `json:"doctor"`
	Clinic    practice.Clinic    `json:"clinic"`
	Insurance practice.Insurance `json:"insurance"`
	Assistant AssistantInfo      `json:"assistant"`
}

// AssistantInfo is what the chat widget needs before the first message
type AssistantInfo struct {
	Name     string `json:"name"`
	Greeting string `json:"greeting"`
}

type ServicesResponse struct {
	Services []practice.Service `json:"services"`
}

type ConditionsResponse struct {
	Conditions []practice.Condition `json:"conditions"`
}
