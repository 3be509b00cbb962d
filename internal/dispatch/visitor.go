package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/asaskevich/govalidator"

	"github.com/ashureev/livechat/internal/connection"
	"github.com/ashureev/livechat/internal/domain"
)

// ErrVisitorInfoInvalid is returned when submitted visitor details miss a required field
// or carry a malformed e-mail address.
var ErrVisitorInfoInvalid = errors.New("invalid visitor info")

// RequiredFields selects which visitor details must be present.
type RequiredFields struct {
	Name  bool
	Email bool
	Phone bool
}

// SubmitVisitorInfo validates and stores the visitor details, announces them on the live
// channel and starts a fresh conversation seeded with the welcome message.
func (d *Dispatcher) SubmitVisitorInfo(_ context.Context, info domain.VisitorInfo) error {
	info = info.Trimmed()
	if err := d.validate(info); err != nil {
		return err
	}

	d.mu.Lock()
	stored := info
	d.visitor = &stored
	d.mu.Unlock()

	if d.live != nil && d.live.State() == connection.Live {
		frame := connection.InitChatFrame{
			Action:    connection.ActionInitChat,
			SellerID:  d.sellerID,
			UserInfo:  info,
			Timestamp: d.timestamp(),
		}
		if err := d.live.SendFrame(frame); err != nil {
			d.logger.Warn("Failed to announce visitor on streaming channel", "error", err)
		}
	}

	d.conv.ResetForNewVisitor(d.welcomeMessage)
	d.logger.Info("Visitor info collected", "widget_id", d.widgetID)
	return nil
}

// VisitorInfo returns a copy of the collected details, or nil.
func (d *Dispatcher) VisitorInfo() *domain.VisitorInfo {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.visitor == nil {
		return nil
	}
	v := *d.visitor
	return &v
}

func (d *Dispatcher) validate(info domain.VisitorInfo) error {
	var problems []string
	if d.required.Name && info.Name == "" {
		problems = append(problems, "name is required")
	}
	switch {
	case info.Email == "" && d.required.Email:
		problems = append(problems, "email is required")
	case info.Email != "" && !govalidator.IsEmail(info.Email):
		problems = append(problems, "email is not valid")
	}
	if d.required.Phone && info.Phone == "" {
		problems = append(problems, "phone is required")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrVisitorInfoInvalid, strings.Join(problems, ", "))
	}
	return nil
}
