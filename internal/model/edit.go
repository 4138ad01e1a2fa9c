package model

import "sort"

// Field names one editable profile attribute. The string value doubles as the
// JSON key accepted by PATCH /api/profile and as the database column name.
type Field string

const (
	FieldHandle          Field = "handle"
	FieldFirstName       Field = "first_name"
	FieldLastName        Field = "last_name"
	FieldAvatarURI       Field = "avatar_uri"
	FieldStatusText      Field = "status_text"
	FieldSocialInstagram Field = "social_instagram"
	FieldSocialGitHub    Field = "social_github"
	FieldSocialTelegram  Field = "social_telegram"
	FieldSocialSteam     Field = "social_steam"
	FieldSocialWhatsApp  Field = "social_whatsapp"
	FieldCourse          Field = "course"
	FieldNeighborhood    Field = "neighborhood"
	FieldGender          Field = "gender"
	FieldOrientation     Field = "orientation"
)

// Fields is the canonical order of every editable field.
var Fields = []Field{
	FieldHandle,
	FieldFirstName,
	FieldLastName,
	FieldAvatarURI,
	FieldStatusText,
	FieldSocialInstagram,
	FieldSocialGitHub,
	FieldSocialTelegram,
	FieldSocialSteam,
	FieldSocialWhatsApp,
	FieldCourse,
	FieldNeighborhood,
	FieldGender,
	FieldOrientation,
}

var fieldIndex = func() map[Field]int {
	m := make(map[Field]int, len(Fields))
	for i, f := range Fields {
		m[f] = i
	}
	return m
}()

// Known reports whether f is an editable profile field.
func (f Field) Known() bool {
	_, ok := fieldIndex[f]
	return ok
}

// SocialField maps a network to the field that stores it.
func SocialField(network SocialNetwork) Field {
	return Field("social_" + string(network))
}

// ProfileEdit is a partial update to a profile: only the fields present in the
// map are written, everything else is left as it is.
//
// PRESENT vs EMPTY:
// A key mapped to "" clears that field. A key that is absent leaves the field
// untouched. That distinction is the whole point of this type, so never build
// a ProfileEdit by copying every field of a Profile.
type ProfileEdit map[Field]string

// NewProfileEdit returns an empty edit.
func NewProfileEdit() ProfileEdit {
	return ProfileEdit{}
}

// Set records a new value for f and returns the edit for chaining.
func (e ProfileEdit) Set(f Field, value string) ProfileEdit {
	e[f] = value
	return e
}

// Get returns the submitted value for f and whether f is part of the edit.
func (e ProfileEdit) Get(f Field) (string, bool) {
	v, ok := e[f]
	return v, ok
}

// Has reports whether f is part of the edit.
func (e ProfileEdit) Has(f Field) bool {
	_, ok := e[f]
	return ok
}

// Fields returns the edited fields, known ones in canonical order followed by
// any unknown keys sorted alphabetically.
func (e ProfileEdit) Fields() []Field {
	out := make([]Field, 0, len(e))
	var unknown []Field
	for f := range e {
		if f.Known() {
			out = append(out, f)
		} else {
			unknown = append(unknown, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return fieldIndex[out[i]] < fieldIndex[out[j]] })
	sort.Slice(unknown, func(i, j int) bool { return unknown[i] < unknown[j] })
	return append(out, unknown...)
}

// Apply merges the edit onto p. Unknown fields are ignored; callers validate first.
func (e ProfileEdit) Apply(p *Profile) {
	for f, v := range e {
		switch f {
		case FieldHandle:
			p.Handle = v
		case FieldFirstName:
			p.FirstName = v
		case FieldLastName:
			p.LastName = v
		case FieldAvatarURI:
			p.AvatarURI = v
		case FieldStatusText:
			p.StatusText = v
		case FieldCourse:
			p.Course = v
		case FieldNeighborhood:
			p.Neighborhood = v
		case FieldGender:
			p.Gender = v
		case FieldOrientation:
			p.Orientation = v
		default:
			if network, ok := socialNetworkFor(f); ok {
				if p.Social == nil {
					p.Social = make(map[SocialNetwork]string)
				}
				p.Social[network] = v
			}
		}
	}
}

func socialNetworkFor(f Field) (SocialNetwork, bool) {
	for _, n := range SocialNetworks {
		if SocialField(n) == f {
			return n, true
		}
	}
	return "", false
}
