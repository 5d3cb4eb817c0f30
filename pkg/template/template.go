// Package template renders message bodies with guest and event placeholders.
package template

import (
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/convoca/convoca/pkg/models"
)

// RenderForGuest renders a message template against one guest. Guest fields
// are exposed under .guest and the event date under .event.date; unknown
// placeholders fail rather than rendering empty text.
func RenderForGuest(input string, guest models.GuestRecord, eventDate time.Time) (string, error) {
	data := map[string]any{
		"guest": map[string]any{
			"name":                 guest.Name,
			"email":                guest.Email,
			"phone":                guest.Phone,
			"rsvp_status":          string(guest.RSVPStatus),
			"guest_count":          guest.GuestCount,
			"table_number":         guest.TableNumber,
			"dietary_restrictions": guest.DietaryRestrictions,
		},
		"event": map[string]any{
			"date": eventDate.Format(time.RFC3339),
		},
	}

	return Render(input, data)
}

func Render(templateStr string, data any) (string, error) {
	tmpl, err := template.
		New("message").
		Option("missingkey=error").
		Funcs(template.FuncMap{
			"now": func() string {
				return time.Now().UTC().Format(time.RFC3339)
			},
		}).Parse(templateStr)
	if err != nil {
		return "", fmt.Errorf("failed to parse template '%s': %w", templateStr, err)
	}

	var buf strings.Builder

	err = tmpl.Execute(&buf, data)
	if err != nil {
		return "", fmt.Errorf("failed to execute template '%s': %w", templateStr, err)
	}

	return buf.String(), nil
}
