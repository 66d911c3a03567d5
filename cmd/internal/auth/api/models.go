package authapi

import (
	"warden/cmd/identity"
	"warden/cmd/internal/validation"
)

type tokenMeta struct {
	AccessToken string `json:"accessToken"`
}

type tokenDocument struct {
	Meta tokenMeta `json:"meta"`
}

type userAttributes struct {
	Username   *string `json:"username,omitempty"`
	Name       *string `json:"name"`
	MiddleName *string `json:"middleName"`
	LastName   *string `json:"lastName"`
	Gender     *string `json:"gender"`
	BirthDate  *string `json:"birthDate"`
}

type userResource struct {
	Type       string         `json:"type"`
	ID         string         `json:"id"`
	Attributes userAttributes `json:"attributes"`
}

type userDocument struct {
	Data userResource `json:"data"`
}

func toUserDocument(u identity.User) userDocument {
	attrs := userAttributes{
		Username:   u.Username,
		Name:       u.Name,
		MiddleName: u.MiddleName,
		LastName:   u.LastName,
		Gender:     u.Gender,
	}
	if u.BirthDate != nil {
		s := u.BirthDate.Format(validation.DateLayout)
		attrs.BirthDate = &s
	}
	return userDocument{Data: userResource{
		Type:       validation.ResourceType,
		ID:         u.ID,
		Attributes: attrs,
	}}
}
