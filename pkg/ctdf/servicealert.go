package ctdf

import (
	"fmt"
	"strings"
	"time"

	"github.com/travigo/onebusaway/pkg/onebusaway"
	"github.com/travigo/onebusaway/pkg/util"
)

type ServiceAlert struct {
	PrimaryIdentifier string `groups:"basic"`

	CreationDateTime time.Time `groups:"detailed"`

	AlertType ServiceAlertType `groups:"basic"`

	Title string `groups:"basic"`
	Text  string `groups:"basic"`
	URL   string `groups:"basic"`

	MatchedIdentifiers []string `groups:"internal"`

	// Zero values mean the alert is open ended
	ValidFrom  time.Time `groups:"internal"`
	ValidUntil time.Time `groups:"internal"`
}

type ServiceAlertType string

const (
	ServiceAlertTypeInformation      ServiceAlertType = "Information"
	ServiceAlertTypeWarning          ServiceAlertType = "Warning"
	ServiceAlertTypeStopClosed       ServiceAlertType = "StopClosed"
	ServiceAlertTypeServiceSuspended ServiceAlertType = "ServiceSuspended"
	ServiceAlertTypeSevereDelays     ServiceAlertType = "SevereDelays"
	ServiceAlertTypeDelays           ServiceAlertType = "Delays"
	ServiceAlertTypePlanned          ServiceAlertType = "Planned"
)

const ServiceAlertIDFormat = "ONEBUSAWAY:SITUATION:%s"

func (a *ServiceAlert) IsValid(checkTime time.Time) bool {
	if !a.ValidFrom.IsZero() && checkTime.Before(a.ValidFrom) {
		return false
	}
	if !a.ValidUntil.IsZero() && !checkTime.Before(a.ValidUntil) {
		return false
	}

	return true
}

// NewServiceAlertFromSituation converts a OneBusAway (SIRI) situation
func NewServiceAlertFromSituation(situation *onebusaway.Situation) *ServiceAlert {
	serviceAlert := &ServiceAlert{
		PrimaryIdentifier: fmt.Sprintf(ServiceAlertIDFormat, situation.ID),
		AlertType:         situationAlertType(situation),
		Title:             strings.TrimSpace(situation.Summary.Value),
		Text:              strings.TrimSpace(strings.ReplaceAll(situation.Description.Value, "\\n", "\n")),
		URL:               situation.URL.Value,
	}

	if situation.CreationTime != 0 {
		serviceAlert.CreationDateTime = time.UnixMilli(situation.CreationTime).UTC()
	}

	if len(situation.ActiveWindows) > 0 {
		window := situation.ActiveWindows[0]
		if window.From != 0 {
			serviceAlert.ValidFrom = time.UnixMilli(window.From).UTC()
		}
		if window.To != 0 {
			serviceAlert.ValidUntil = time.UnixMilli(window.To).UTC()
		}
	}

	var identifiers []string
	for _, affects := range situation.AllAffects {
		identifiers = append(identifiers, affects.AgencyID, affects.RouteID, affects.StopID, affects.TripID)
	}
	serviceAlert.MatchedIdentifiers = util.RemoveDuplicateStrings(identifiers, nil)

	if serviceAlert.Title == "" {
		serviceAlert.Title = string(serviceAlert.AlertType)
	}

	return serviceAlert
}

func situationAlertType(situation *onebusaway.Situation) ServiceAlertType {
	switch strings.ToLower(situation.Reason) {
	case "construction", "maintenancework", "roadworks":
		return ServiceAlertTypePlanned
	case "stopclosed", "closedstop":
		return ServiceAlertTypeStopClosed
	}

	switch strings.ToLower(situation.Severity) {
	case "nooperation", "noservice":
		return ServiceAlertTypeServiceSuspended
	case "severe", "veryseveredelays", "severedelays":
		return ServiceAlertTypeSevereDelays
	case "normal", "slight", "delays":
		return ServiceAlertTypeDelays
	case "verysevere":
		return ServiceAlertTypeWarning
	}

	return ServiceAlertTypeInformation
}
