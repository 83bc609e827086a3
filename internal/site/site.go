package site

import (
	"fmt"
	"strings"
)

// Sentinels substituted for absent or empty fields. They are part of the
// record contract: consumers compare against them.
const (
	NoCategory = "No Category"
	NoName     = "No Name"
	NoAddress  = "No Address"
	NoZipcode  = "No Zipcode"
	NoPhone    = "No Phone"
)

// Site is a national site, or a place near one.
// Every field is either extracted text or its sentinel, never empty.
type Site struct {
	Category string `json:"category"`
	Name     string `json:"name"`
	Address  string `json:"address"`
	Zipcode  string `json:"zipcode"`
	Phone    string `json:"phone"`
}

// Field is one optionally-present raw value.
type Field struct {
	Value   string
	Present bool
}

func Present(value string) Field {
	return Field{Value: value, Present: true}
}

func Absent() Field {
	return Field{}
}

// RawSite holds extracted values before sentinel defaulting.
type RawSite struct {
	Category Field
	Name     Field
	Address  Field
	Zipcode  Field
	Phone    Field
}

// Resolve returns the trimmed value, or sentinel if it is absent or blank.
func Resolve(value string, present bool, sentinel string) string {
	if !present {
		return sentinel
	}
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return sentinel
	}
	return trimmed
}

func (f Field) Or(sentinel string) string {
	return Resolve(f.Value, f.Present, sentinel)
}

// New builds a Site from raw values, defaulting each field independently.
func New(raw RawSite) Site {
	return Site{
		Category: raw.Category.Or(NoCategory),
		Name:     raw.Name.Or(NoName),
		Address:  raw.Address.Or(NoAddress),
		Zipcode:  raw.Zipcode.Or(NoZipcode),
		Phone:    raw.Phone.Or(NoPhone),
	}
}

// HasZipcode reports whether the zipcode was actually extracted.
func (s Site) HasZipcode() bool {
	return s.Zipcode != "" && s.Zipcode != NoZipcode
}

// Info renders "<Name> (<Category>): <Address> <Zipcode>".
func (s Site) Info() string {
	return fmt.Sprintf("%s (%s): %s %s", s.Name, s.Category, s.Address, s.Zipcode)
}

func (s Site) String() string {
	return s.Info()
}
