package schema

import (
	"net/mail"
	"strconv"

	"github.com/tsarna/harmony/pkg/harmony"
	"go.uber.org/multierr"
)

var User = Object[harmony.User]{
	Name:     "user",
	Required: []string{"id", "username", "email", "created_at"},
	Check: func(u *harmony.User) error {
		return checkEmail("email", u.Email)
	},
}

var Server = Object[harmony.Server]{
	Name:     "server",
	Required: []string{"id", "name", "owner_id", "is_owner", "created_at"},
}

var Channel = Object[harmony.Channel]{
	Name:     "channel",
	Required: []string{"id", "name", "position", "channel_type", "is_private", "created_at"},
	Check: func(c *harmony.Channel) error {
		if !c.ChannelType.Valid() {
			return Issuef("channel_type", "unknown channel type %q", c.ChannelType)
		}
		return nil
	},
}

var Message = Object[harmony.Message]{
	Name:     "message",
	Required: []string{"id", "channel_id", "user_id", "username", "content", "created_at", "updated_at"},
}

var Profile = Object[harmony.Profile]{
	Name:     "profile",
	Required: []string{"user_id", "status", "show_online_status", "allow_dms", "created_at", "updated_at"},
	Check: func(p *harmony.Profile) error {
		return checkStatus(p.Status)
	},
}

var FullProfile = Object[harmony.FullProfile]{
	Name:     "full profile",
	Required: []string{"id", "username", "status", "show_online_status", "created_at"},
	Check: func(p *harmony.FullProfile) error {
		return checkStatus(p.Status)
	},
}

var Friendship = Object[harmony.Friendship]{
	Name:     "friendship",
	Required: []string{"user_low", "user_high", "sender_id", "status", "created_at", "updated_at"},
	Check: func(f *harmony.Friendship) error {
		if !f.Status.Valid() {
			return Issuef("status", "unknown friendship status %q", f.Status)
		}
		f.Status = f.Status.Normalize()
		return nil
	},
}

// ErrorResponse accepts any object; both fields are optional.
var ErrorResponse = Object[harmony.ErrorResponse]{
	Name: "error response",
}

var AuthResponse = Object[harmony.AuthResponse]{
	Name:     "auth response",
	Required: []string{"user", "token"},
	Nested:   map[string]Validator{"user": User},
}

// PageOf returns a schema for a paginated listing of elem.
func PageOf[T any](elem Object[T]) Object[harmony.Page[T]] {
	return Object[harmony.Page[T]]{
		Name:     elem.Name + " page",
		Required: []string{"data", "limit", "offset", "has_more"},
		Nested:   map[string]Validator{"data": ArrayOf(elem)},
		Check: func(p *harmony.Page[T]) error {
			if elem.Check == nil {
				return nil
			}
			// Nested validation ran Check on copies; run it again so that
			// normalisation applies to the returned elements.
			var errs error
			for i := range p.Data {
				errs = multierr.Append(errs, prefixIssues("data["+strconv.Itoa(i)+"]", elem.Check(&p.Data[i])))
			}
			return errs
		},
	}
}

func checkStatus(s harmony.Status) error {
	if !s.Valid() {
		return Issuef("status", "unknown status %q", s)
	}
	return nil
}

// checkEmail accepts a bare address only; display-name forms are rejected.
func checkEmail(path, email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || addr.Name != "" {
		return Issuef(path, "invalid email address")
	}
	return nil
}
