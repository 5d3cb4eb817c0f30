package models

import (
	"strconv"
	"time"
)

// RSVPStatus is the three-way guest response vocabulary.
type RSVPStatus string

const (
	RSVPConfirmed RSVPStatus = "confirmed"
	RSVPPending   RSVPStatus = "pending"
	RSVPDeclined  RSVPStatus = "declined"
)

// GuestRecord is the engine's read-only view of one guest, as served by the
// guest store. Contact fields are opaque to the engine and handed to the
// dispatcher untouched.
type GuestRecord struct {
	ID                  string     `json:"id"`
	EventID             string     `json:"event_id"`
	Name                string     `json:"name"`
	Email               string     `json:"email,omitempty"`
	Phone               string     `json:"phone,omitempty"`
	RSVPStatus          RSVPStatus `json:"rsvp_status"`
	GuestCount          int        `json:"guest_count"`
	TableNumber         string     `json:"table_number,omitempty"`
	DietaryRestrictions string     `json:"dietary_restrictions,omitempty"`
	CheckedIn           bool       `json:"checked_in"`
	InvitationMethod    string     `json:"invitation_method,omitempty"`
	EmailOpened         bool       `json:"email_opened"`
	LinkClicked         bool       `json:"link_clicked"`
}

// GuestContext exposes one guest's fields plus event-relative time fields to
// the condition evaluator. Now is injected so evaluation is deterministic in
// tests.
type GuestContext struct {
	Guest     GuestRecord
	EventDate time.Time
	Now       time.Time
}

// Field resolves a condition field name to its string value. The boolean is
// false for unknown fields, which the evaluator treats as a failed predicate.
func (c GuestContext) Field(name ConditionField) (string, bool) {
	switch name {
	case FieldRSVPStatus:
		return string(c.Guest.RSVPStatus), true
	case FieldGuestCount:
		return strconv.Itoa(c.Guest.GuestCount), true
	case FieldDaysBeforeEvent:
		return strconv.Itoa(int(c.EventDate.Sub(c.Now).Hours() / 24)), true
	case FieldHoursBeforeEvent:
		return strconv.Itoa(int(c.EventDate.Sub(c.Now).Hours())), true
	case FieldTableNumber:
		return c.Guest.TableNumber, true
	case FieldDietaryRestrictions:
		return c.Guest.DietaryRestrictions, true
	case FieldCheckedIn:
		return strconv.FormatBool(c.Guest.CheckedIn), true
	case FieldInvitationMethod:
		return c.Guest.InvitationMethod, true
	case FieldEmailOpened:
		return strconv.FormatBool(c.Guest.EmailOpened), true
	case FieldLinkClicked:
		return strconv.FormatBool(c.Guest.LinkClicked), true
	default:
		return "", false
	}
}
