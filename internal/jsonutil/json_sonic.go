//go:build sonic

package jsonutil

import (
	"github.com/bytedance/sonic"
)

var Marshal = sonic.Marshal
var MarshalIndent = sonic.MarshalIndent
var Unmarshal = sonic.Unmarshal
