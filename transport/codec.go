// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

// encMode encodes with Core Deterministic Encoding (RFC 8949 §4.2): sorted
// map keys, smallest integer encoding, no indefinite-length items. Same
// logical payload always produces identical bytes, which keeps frame
// replay in tests byte-for-byte comparable.
var encMode cbor.EncMode

// decMode decodes standard CBOR, picking map[string]any for any-typed
// targets rather than CBOR's default map[interface{}]interface{}.
var decMode cbor.DecMode

func init() {
	var err error

	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("transport: cbor encoder init: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("transport: cbor decoder init: " + err.Error())
	}
}

// marshal encodes v as a control-message payload.
func marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// unmarshal decodes a control-message payload into v.
func unmarshal(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}
