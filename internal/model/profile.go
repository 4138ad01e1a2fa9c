// Package model defines the data structures used throughout the application.
package model

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// SocialNetwork is one of the fixed networks a member can link on their profile.
type SocialNetwork string

const (
	SocialInstagram SocialNetwork = "instagram"
	SocialGitHub    SocialNetwork = "github"
	SocialTelegram  SocialNetwork = "telegram"
	SocialSteam     SocialNetwork = "steam"
	SocialWhatsApp  SocialNetwork = "whatsapp"
)

// SocialNetworks lists the supported networks in display order.
var SocialNetworks = []SocialNetwork{
	SocialInstagram,
	SocialGitHub,
	SocialTelegram,
	SocialWhatsApp,
	SocialSteam,
}

// Profile is the editable, publicly visible record of a club member.
//
// ONE ROW PER ACCOUNT:
// ID is the identity provider's account ID. It is set once, when the row is first
// written, and never changes. Handle is the public, user-chosen name used in
// /perfil/{handle}; an empty Handle means the profile is only visible to its owner.
//
// Every text field uses "" for "not set". The zero value of Profile is a valid,
// empty profile.
type Profile struct {
	ID           string                   `json:"id"`
	Handle       string                   `json:"handle,omitempty"`
	FirstName    string                   `json:"firstName"`
	LastName     string                   `json:"lastName"`
	AvatarURI    string                   `json:"avatarUri,omitempty"`
	StatusText   string                   `json:"statusText"`
	Social       map[SocialNetwork]string `json:"social"`
	Course       string                   `json:"course"`
	Neighborhood string                   `json:"neighborhood"`
	Gender       string                   `json:"gender"`
	Orientation  string                   `json:"orientation"`
	CreatedAt    time.Time                `json:"createdAt"`
	UpdatedAt    time.Time                `json:"updatedAt"`
}

// placeholderAvatarURL is the deterministic generated avatar used when a member
// has not uploaded a picture. The seed is the profile ID so it never changes.
const placeholderAvatarURL = "https://api.dicebear.com/7.x/pixel-art/svg?seed=%s"

// IsPublic reports whether the profile can be resolved by handle.
func (p *Profile) IsPublic() bool {
	return p.Handle != ""
}

// DisplayName joins first and last name, falling back to the handle.
func (p *Profile) DisplayName() string {
	name := strings.TrimSpace(p.FirstName + " " + p.LastName)
	if name != "" {
		return name
	}
	if p.Handle != "" {
		return "@" + p.Handle
	}
	return ""
}

// AvatarOrPlaceholder returns the uploaded avatar, or a generated one keyed by ID.
func (p *Profile) AvatarOrPlaceholder() string {
	if p.AvatarURI != "" {
		return p.AvatarURI
	}
	return fmt.Sprintf(placeholderAvatarURL, url.QueryEscape(p.ID))
}

// SocialValue returns the raw value stored for network, or "".
func (p *Profile) SocialValue(network string) string {
	return p.Social[SocialNetwork(network)]
}

// SocialLink is a ready-to-render outbound link for one network.
type SocialLink struct {
	Network SocialNetwork
	Value   string
	URL     string
}

// SocialLinks builds outbound links for every network the member filled in,
// in SocialNetworks order. Networks with an empty value are skipped.
func (p *Profile) SocialLinks() []SocialLink {
	links := make([]SocialLink, 0, len(SocialNetworks))
	for _, network := range SocialNetworks {
		value := strings.TrimSpace(p.Social[network])
		if value == "" {
			continue
		}
		link := SocialURL(network, value, p.DisplayName())
		if link == "" {
			continue
		}
		links = append(links, SocialLink{Network: network, Value: value, URL: link})
	}
	return links
}

// whatsAppCountryCode is prefixed to the stored phone number. Members enter
// local Brazilian numbers.
const whatsAppCountryCode = "55"

// SocialURL turns a raw username (or phone, for WhatsApp) into a profile URL.
// Returns "" for unknown networks or values that reduce to nothing.
func SocialURL(network SocialNetwork, value, displayName string) string {
	username := strings.TrimPrefix(strings.TrimSpace(value), "@")
	if username == "" {
		return ""
	}
	escaped := url.PathEscape(username)

	switch network {
	case SocialInstagram:
		return "https://instagram.com/" + escaped
	case SocialGitHub:
		return "https://github.com/" + escaped
	case SocialTelegram:
		return "https://t.me/" + escaped
	case SocialSteam:
		return "https://steamcommunity.com/id/" + escaped
	case SocialWhatsApp:
		phone := digitsOnly(username)
		if phone == "" {
			return ""
		}
		if displayName == "" {
			displayName = "pessoa"
		}
		msg := fmt.Sprintf("Olá %s, achei seu whatsapp no app do CA da UNIRIO!", displayName)
		return "https://wa.me/" + whatsAppCountryCode + phone + "?text=" + url.QueryEscape(msg)
	default:
		return ""
	}
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
