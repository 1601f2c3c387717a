//go:build !sonic

package jsonutil

import (
	"github.com/goccy/go-json"
)

var Marshal = json.Marshal
var MarshalIndent = json.MarshalIndent
var Unmarshal = json.Unmarshal
