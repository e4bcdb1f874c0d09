package settings

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"sort"

	"github.com/go-viper/mapstructure/v2"
	kjson "github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/v2"
)

// Patch is a partial settings document. Only the fields it contains are
// written into the target when it is applied.
type Patch struct {
	values map[string]interface{}
}

// ParseOverlay strips one layer of quotes from raw and parses the rest as a
// JSON object. An empty input yields (nil, nil): there is no overlay.
// A null value anywhere in the object is rejected; an overlay cannot reset a
// field to its zero value.
func ParseOverlay(raw string) (*Patch, error) {
	s := Unquote(raw)
	if s == "" {
		return nil, nil
	}

	values, err := kjson.Parser().Unmarshal([]byte(s))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedOverlay, err)
	}
	if values == nil {
		return nil, fmt.Errorf("%w: overlay must be a JSON object", ErrMalformedOverlay)
	}
	if key, ok := findNull(values, ""); ok {
		return nil, fmt.Errorf("%w: %s is null", ErrMalformedOverlay, key)
	}
	return &Patch{values: values}, nil
}

// findNull returns the path of the first null value in values.
func findNull(values map[string]interface{}, prefix string) (string, bool) {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		path := k
		if prefix != "" {
			path = prefix + "." + k
		}
		switch v := values[k].(type) {
		case nil:
			return path, true
		case map[string]interface{}:
			if p, ok := findNull(v, path); ok {
				return p, true
			}
		}
	}
	return "", false
}

// Keys returns the flattened key paths present in the patch, sorted.
func (p *Patch) Keys() []string {
	k := koanf.New(".")
	// confmap with an empty delimiter never fails.
	_ = k.Load(confmap.Provider(p.values, ""), nil)
	return k.Keys()
}

// Apply merges the patch into target. Fields absent from the patch keep
// their current values. Either every patched field is applied or, on
// error, target is left exactly as it was.
//
// ignored lists patch keys that do not correspond to any settings field.
func (p *Patch) Apply(target *Settings) (ignored []string, err error) {
	base, err := toMap(target)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedOverlay, err)
	}

	k := koanf.New(".")
	if err := k.Load(confmap.Provider(base, ""), nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedOverlay, err)
	}
	if err := k.Load(confmap.Provider(p.values, ""), nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedOverlay, err)
	}

	merged, unused, err := decode(k)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedOverlay, err)
	}
	*target = merged
	return unused, nil
}

// toMap converts s into the generic form koanf merges on, keyed by JSON names.
func toMap(s *Settings) (map[string]interface{}, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return kjson.Parser().Unmarshal(b)
}

// decode unmarshals the koanf tree into a fresh Settings value and reports
// keys that matched no field. Values must already have the field's JSON type.
func decode(k *koanf.Koanf) (Settings, []string, error) {
	var (
		out Settings
		md  mapstructure.Metadata
	)
	err := k.UnmarshalWithConf("", &out, koanf.UnmarshalConf{
		Tag: "json",
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.TextUnmarshallerHookFunc(),
				integralHook,
			),
			Metadata: &md,
			Result:   &out,
			TagName:  "json",
		},
	})
	if err != nil {
		return Settings{}, nil, err
	}
	sort.Strings(md.Unused)
	return out, md.Unused, nil
}

// integralHook rejects fractional numbers bound for integer fields, which
// mapstructure would otherwise truncate.
func integralHook(from, to reflect.Type, data interface{}) (interface{}, error) {
	if from.Kind() != reflect.Float64 && from.Kind() != reflect.Float32 {
		return data, nil
	}
	switch to.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if f := reflect.ValueOf(data).Float(); f != math.Trunc(f) {
			return nil, fmt.Errorf("%v is not an integer", f)
		}
	}
	return data, nil
}
