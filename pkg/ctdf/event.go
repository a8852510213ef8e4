package ctdf

import (
	"encoding/json"
	"fmt"
	"time"
)

type Event struct {
	Type      EventType
	Timestamp time.Time
	Body      interface{}
}

type EventType string

const (
	EventTypeSituationCreated   EventType = "SituationCreated"
	EventTypeArrivalsUpdated    EventType = "ArrivalsUpdated"
	EventTypeStopUpdateFailed   EventType = "StopUpdateFailed"
	EventTypeStopReauthRequired EventType = "StopReauthRequired"
)

type SituationCreatedEvent struct {
	StopID       string
	ServiceAlert *ServiceAlert
}

type ArrivalsUpdatedEvent struct {
	StopID      string
	Arrivals    []*Arrival
	NextRefresh time.Time
}

type StopFailureEvent struct {
	StopID string
	Error  string
}

func (e *Event) GetNotificationData() EventNotificationData {
	eventNotificationData := EventNotificationData{}

	switch body := e.Body.(type) {
	case *SituationCreatedEvent:
		if body.ServiceAlert != nil {
			eventNotificationData.Title = body.ServiceAlert.Title
			eventNotificationData.Message = body.ServiceAlert.Text
		}
	case *StopFailureEvent:
		if e.Type == EventTypeStopReauthRequired {
			eventNotificationData.Title = "Reauthentication required"
			eventNotificationData.Message = fmt.Sprintf("The OneBusAway token for stop %s was rejected", body.StopID)
		} else {
			eventNotificationData.Title = "Update failed"
			eventNotificationData.Message = fmt.Sprintf("Failed to update stop %s: %s", body.StopID, body.Error)
		}
	case *ArrivalsUpdatedEvent:
		eventNotificationData.Title = "Arrivals updated"
		eventNotificationData.Message = fmt.Sprintf("%d upcoming arrivals at stop %s", len(body.Arrivals), body.StopID)
	}

	return eventNotificationData
}

type EventNotificationData struct {
	Title   string
	Message string
}

// DecodeEvent reads an encoded Event back into its typed body
func DecodeEvent(eventBytes []byte) (*Event, error) {
	var raw struct {
		Type      EventType
		Timestamp time.Time
		Body      json.RawMessage
	}
	if err := json.Unmarshal(eventBytes, &raw); err != nil {
		return nil, err
	}

	event := &Event{
		Type:      raw.Type,
		Timestamp: raw.Timestamp,
	}

	switch raw.Type {
	case EventTypeSituationCreated:
		event.Body = &SituationCreatedEvent{}
	case EventTypeArrivalsUpdated:
		event.Body = &ArrivalsUpdatedEvent{}
	case EventTypeStopUpdateFailed, EventTypeStopReauthRequired:
		event.Body = &StopFailureEvent{}
	default:
		return nil, fmt.Errorf("unknown event type %q", raw.Type)
	}

	if len(raw.Body) > 0 {
		if err := json.Unmarshal(raw.Body, event.Body); err != nil {
			return nil, err
		}
	}

	if body, ok := event.Body.(*SituationCreatedEvent); ok && body.ServiceAlert == nil {
		return nil, fmt.Errorf("situation event for stop %q has no service alert", body.StopID)
	}

	return event, nil
}

// StopID returns the stop the event is about
func (e *Event) StopID() string {
	switch body := e.Body.(type) {
	case *SituationCreatedEvent:
		return body.StopID
	case *ArrivalsUpdatedEvent:
		return body.StopID
	case *StopFailureEvent:
		return body.StopID
	}

	return ""
}
