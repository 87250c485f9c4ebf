package fleetstub

import (
	"errors"
	"fmt"
	"html"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

// Icons are the selectable device icons, in display order
var Icons = []string{"car", "truck", "van", "bike"}

const (
	minRadius = 1
	maxRadius = 500

	maxNameLen = 100
)

var errInvalidInput = errors.New("invalid device")

// DeviceInput is the JSON body accepted by the create and update endpoints
type DeviceInput struct {
	Name          string `json:"name"`
	Pulsing       bool   `json:"pulsing"`
	SidebarRadius int    `json:"sidebar_radius"`
	MapRadius     int    `json:"map_radius"`
	Icon          string `json:"icon"`
}

var namePolicy = bluemonday.StrictPolicy()

// sanitizeName trims a device name and rejects any markup, including
// entities that would decode to markup or to different text. Accepted names
// are returned unchanged, so saving a device again never renames it.
func sanitizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: name is required", errInvalidInput)
	}
	if html.UnescapeString(namePolicy.Sanitize(name)) != name {
		return "", fmt.Errorf("%w: name must be plain text", errInvalidInput)
	}
	return name, nil
}

// toDevice validates in and copies it onto d
func (in DeviceInput) toDevice(d *Device) error {
	name, err := sanitizeName(in.Name)
	if err != nil {
		return err
	}
	if utf8.RuneCountInString(name) > maxNameLen {
		return fmt.Errorf("%w: name longer than %d characters", errInvalidInput, maxNameLen)
	}
	for _, r := range []struct {
		field string
		value int
	}{{"sidebar_radius", in.SidebarRadius}, {"map_radius", in.MapRadius}} {
		if r.value < minRadius || r.value > maxRadius {
			return fmt.Errorf("%w: %s must be between %d and %d", errInvalidInput, r.field, minRadius, maxRadius)
		}
	}
	icon := in.Icon
	if icon == "" {
		icon = Icons[0]
	}
	if !validIcon(icon) {
		return fmt.Errorf("%w: unknown icon %q", errInvalidInput, in.Icon)
	}

	d.Name = name
	d.Pulsing = in.Pulsing
	d.SidebarRadius = in.SidebarRadius
	d.MapRadius = in.MapRadius
	d.Icon = icon
	return nil
}

func validIcon(icon string) bool {
	for _, i := range Icons {
		if i == icon {
			return true
		}
	}
	return false
}
