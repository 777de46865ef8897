package board

import (
	"encoding/json"
	"strings"
)

// Other is the form value that asks for a free-form category.
const Other = "Autre"

// Known categories, in the order the form offers them.
var Known = []string{
	"Électricité",
	"Télécom",
	"GC",
	"Viabilisation",
	"Panneaux solaires",
	"Borne IRVE",
}

// Category is either one of Known or a custom label. It is stored as a
// plain string.
type Category struct {
	name   string
	custom bool
}

// ParseCategory maps a stored string to a Category. Anything outside
// Known becomes a custom category carrying the string verbatim; the empty
// string is the zero Category.
func ParseCategory(s string) Category {
	if s == "" {
		return Category{}
	}
	for _, k := range Known {
		if s == k {
			return Category{name: s}
		}
	}
	return Category{name: s, custom: true}
}

// CustomCategory builds the custom variant.
func CustomCategory(s string) Category {
	return Category{name: s, custom: true}
}

// ResolveCategory applies the form rule: the custom string wins only when
// the selected value is Other and the custom string is not blank.
func ResolveCategory(selected, custom string) Category {
	custom = strings.TrimSpace(custom)
	if selected == Other && custom != "" {
		return CustomCategory(custom)
	}
	return ParseCategory(selected)
}

func (c Category) String() string { return c.name }

// IsCustom reports whether the category is outside the known set.
func (c Category) IsCustom() bool { return c.custom }

func (c Category) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.name)
}

func (c *Category) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*c = ParseCategory(s)
	return nil
}
