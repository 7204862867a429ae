package agent

import (
	"encoding/json"
	"fmt"
	"reflect"
)

// Type represents a specific type of a Model Config. Config's with this
// type can create Models of the corresponding type.
type Type string

const (
	ModularActorCritic Type = "ModularAC"
)

// Registered types with the package. Once a Type has been registered
// with this map, a TypedConfig with that type can be created.
//
// No Type's are registered with this package upon initialization.
// Each separate package is in charge of registering its Type with
// the package separately to avoid circular imports.
var registeredTypes map[Type]reflect.Type

func init() {
	registeredTypes = make(map[Type]reflect.Type)
}

// Register registers a Model's Type with a concrete Config type so that
// upon deserialization of a TypedConfig, Configs of type modelType are
// deserialized into the concrete type of config.
func Register(modelType Type, config Config) {
	registeredTypes[modelType] = reflect.TypeOf(config)
}

// TypedConfig wraps a Config to enable a Config to be JSON marshaled
// and unmarshaled into its underlying concrete type
type TypedConfig struct {
	Type
	Config
}

// NewTypedConfig returns a new TypedConfig wrapping c
func NewTypedConfig(c Config) TypedConfig {
	return TypedConfig{Type: c.Type(), Config: c}
}

// UnmarshalJSON implements the json.Unmarshaller interface
func (t *TypedConfig) UnmarshalJSON(data []byte) error {
	config, typeName, err := unmarshalConfig(data, "Type", "Config")
	if err != nil {
		return err
	}

	t.Type = typeName
	t.Config = config

	return nil
}

// unmarshalConfig uses reflection to unmarshall a Config into its
// concrete type. Both the Config and its Type are returned.
func unmarshalConfig(data []byte, typeJsonField,
	valueJsonField string) (Config, Type, error) {
	m := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, "", err
	}

	var typeName Type
	if err := json.Unmarshal(m[typeJsonField], &typeName); err != nil {
		return nil, "", fmt.Errorf("unmarshalconfig: could not read %v: %v",
			typeJsonField, err)
	}

	ty, found := registeredTypes[typeName]
	if !found {
		return nil, "", fmt.Errorf("unmarshalconfig: unregistered model "+
			"type %v", typeName)
	}
	value := reflect.New(ty)

	if raw, ok := m[valueJsonField]; ok {
		if err := json.Unmarshal(raw, value.Interface()); err != nil {
			return nil, "", err
		}
	}
	concreteValue := value.Elem().Interface().(Config)

	return concreteValue, typeName, nil
}
