// Package split partitions a dataset into train, validation and test index
// sets and persists them as numpy archives.
package split

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	apperrors "github.com/turtacn/ShiftGraph/pkg/errors"
)

// SizeKind tells how a Size was given.
type SizeKind int

const (
	SizeUnset SizeKind = iota
	SizeCount
	SizeFraction
)

// Size is a split size: unset, an absolute count, or a fraction of the
// dataset length.
type Size struct {
	kind     SizeKind
	count    int
	fraction float64
}

// Unset returns the size to be inferred from the other two.
func Unset() Size { return Size{} }

// Count returns an absolute size.
func Count(n int) Size { return Size{kind: SizeCount, count: n} }

// Fraction returns a size relative to the dataset length.
func Fraction(f float64) Size { return Size{kind: SizeFraction, fraction: f} }

func (s Size) Kind() SizeKind         { return s.kind }
func (s Size) IsUnset() bool          { return s.kind == SizeUnset }
func (s Size) IsFraction() bool       { return s.kind == SizeFraction }
func (s Size) CountValue() int        { return s.count }
func (s Size) FractionValue() float64 { return s.fraction }

// ParseSize reads a size from text. "None" and "" are unset; text that parses
// as an integer is a count; anything else numeric is a fraction.
func ParseSize(text string) (Size, error) {
	text = strings.TrimSpace(text)
	if text == "" || text == "None" || text == "null" || text == "~" {
		return Unset(), nil
	}
	if n, err := strconv.Atoi(text); err == nil {
		return Count(n), nil
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return Size{}, apperrors.InvalidSplit("split size is not a number").WithDetail(text)
	}
	return Fraction(f), nil
}

// Validate rejects negative counts and fractions outside (0, 1]. An empty
// partition is requested with the count 0.
func (s Size) Validate() error {
	switch s.kind {
	case SizeCount:
		if s.count < 0 {
			return apperrors.InvalidSplit("split size must not be negative").WithDetail(s.String())
		}
	case SizeFraction:
		if math.IsNaN(s.fraction) || s.fraction <= 0 || s.fraction > 1 {
			return apperrors.InvalidSplit("split fraction must lie in (0, 1]").WithDetail(s.String())
		}
	}
	return nil
}

// String renders the size so that ParseSize reads it back unchanged.
func (s Size) String() string {
	switch s.kind {
	case SizeCount:
		return strconv.Itoa(s.count)
	case SizeFraction:
		return formatFraction(s.fraction)
	}
	return "None"
}

func formatFraction(f float64) string {
	out := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsAny(out, ".eEn") {
		out += ".0"
	}
	return out
}

// MarshalYAML keeps fractions recognisable as floats, so 1.0 does not come
// back as the count 1.
func (s Size) MarshalYAML() (interface{}, error) {
	switch s.kind {
	case SizeCount:
		return s.count, nil
	case SizeFraction:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: formatFraction(s.fraction)}, nil
	}
	return nil, nil
}

// UnmarshalYAML accepts an integer, a float or null.
func (s *Size) UnmarshalYAML(node *yaml.Node) error {
	switch node.ShortTag() {
	case "!!null":
		*s = Unset()
		return nil
	case "!!float":
		f, err := strconv.ParseFloat(node.Value, 64)
		if err != nil {
			return apperrors.InvalidSplit("split size is not a number").WithDetail(node.Value)
		}
		*s = Fraction(f)
		return nil
	}
	parsed, err := ParseSize(node.Value)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

var sizeType = reflect.TypeOf(Size{})

// SizeDecodeHook converts config values into a Size: integers become counts,
// floats fractions, strings go through ParseSize.
func SizeDecodeHook() mapstructure.DecodeHookFuncType {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != sizeType {
			return data, nil
		}
		switch v := data.(type) {
		case nil:
			return Unset(), nil
		case Size:
			return v, nil
		case string:
			return ParseSize(v)
		case float32:
			return Fraction(float64(v)), nil
		case float64:
			return Fraction(v), nil
		case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
			n, err := strconv.Atoi(fmt.Sprint(v))
			if err != nil {
				return nil, err
			}
			return Count(n), nil
		}
		return nil, apperrors.InvalidSplit(fmt.Sprintf("cannot use %T as a split size", data))
	}
}
