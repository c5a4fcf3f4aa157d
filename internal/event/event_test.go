package event

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"object-denormalizer/internal/common/errors"
)

const contentEvent = `{
	"eid": "START",
	"mid": "START:8f1c",
	"ets": 1506931800000,
	"object": {"id": "do_31", "type": "Content", "ver": "1.0"},
	"edata": {"type": "app"},
	"flags": {"dd_processed": true}
}`

func mustDecode(t *testing.T, raw string) *Event {
	e, err := Decode([]byte(raw))
	require.NoError(t, err)
	return e
}

func TestDecode(t *testing.T) {
	e := mustDecode(t, contentEvent)

	assert.Equal(t, "START:8f1c", e.ID())
	assert.Equal(t, "Content", e.ObjectType())
	assert.Equal(t, "do_31", e.ObjectID())
	assert.Equal(t, StatusPending, e.Status())
	assert.True(t, e.ObjectFieldsPresent())
	assert.True(t, e.CanDeNormalize())
	assert.Equal(t, "1506931800000", e.GetString("ets"))
}

func TestDecode_Malformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"whitespace", "   "},
		{"not json", "hello"},
		{"array", `[{"mid":"x"}]`},
		{"string", `"event"`},
		{"null", "null"},
		{"truncated", `{"mid": "x"`},
		{"trailing data", `{"mid":"x"} {"mid":"y"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := Decode([]byte(tt.raw))
			assert.Nil(t, e)
			assert.True(t, errors.IsType(err, errors.ErrTypeMalformedEvent), "got %v", err)
		})
	}
}

func TestID(t *testing.T) {
	tests := []struct {
		name    string
		payload map[string]interface{}
		want    string
	}{
		{"mid", map[string]interface{}{"mid": "m1", "eid": "START"}, "m1"},
		{"falls back to eid", map[string]interface{}{"eid": "START"}, "START"},
		{"empty mid falls back", map[string]interface{}{"mid": "", "eid": "END"}, "END"},
		{"neither", map[string]interface{}{}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, New(tt.payload).ID())
		})
	}
}

func TestObjectPredicates(t *testing.T) {
	tests := []struct {
		name           string
		raw            string
		fieldsPresent  bool
		canDeNormalize bool
	}{
		{"no object", `{"mid":"m1"}`, false, false},
		{"null object", `{"mid":"m1","object":null}`, false, false},
		{"empty object", `{"mid":"m1","object":{}}`, false, false},
		{"object not a map", `{"mid":"m1","object":"do_31"}`, false, false},
		{"type only", `{"mid":"m1","object":{"type":"content"}}`, true, false},
		{"blank id", `{"mid":"m1","object":{"id":"  ","type":"content"}}`, true, false},
		{"id only", `{"mid":"m1","object":{"id":"do_31"}}`, true, false},
		{"numeric id", `{"mid":"m1","object":{"id":42,"type":"item"}}`, true, true},
		{"complete", `{"mid":"m1","object":{"id":"do_31","type":"content"}}`, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := mustDecode(t, tt.raw)
			assert.Equal(t, tt.fieldsPresent, e.ObjectFieldsPresent())
			assert.Equal(t, tt.canDeNormalize, e.CanDeNormalize())
		})
	}
}

func TestMarkSkipped(t *testing.T) {
	e := mustDecode(t, contentEvent)
	e.MarkSkipped()

	assert.Equal(t, StatusSkipped, e.Status())
	skipped, _ := e.Get(FlagSkipped)
	processed, _ := e.Get(FlagProcessed)
	assert.Equal(t, true, skipped)
	assert.Equal(t, false, processed)

	// existing flags survive
	dd, ok := e.Get("flags.dd_processed")
	assert.True(t, ok)
	assert.Equal(t, true, dd)
}

func TestMarkDenormalized(t *testing.T) {
	e := New(nil)
	e.MarkDenormalized()

	assert.Equal(t, StatusDenormalized, e.Status())
	processed, ok := e.Get(FlagProcessed)
	assert.True(t, ok)
	assert.Equal(t, true, processed)
}

func TestMarkFailed(t *testing.T) {
	e := mustDecode(t, contentEvent)
	e.MarkFailed("lookup", `lookup of "do_31" failed: content not found`)

	assert.Equal(t, StatusFailed, e.Status())
	assert.Equal(t, "lookup", e.FailureKind())
	assert.Equal(t, `lookup of "do_31" failed: content not found`, e.FailureMessage())
	assert.Equal(t, "lookup", e.GetString(MetaErrorKind))
	assert.Equal(t, e.FailureMessage(), e.GetString(MetaErrorMessage))

	processed, _ := e.Get(FlagProcessed)
	assert.Equal(t, false, processed)
}

func TestMarkFailed_NeverBlank(t *testing.T) {
	e := New(nil)
	e.MarkFailed("", "")

	assert.Equal(t, "internal", e.FailureKind())
	assert.Equal(t, "internal", e.FailureMessage())
}

func TestSet(t *testing.T) {
	e := mustDecode(t, contentEvent)

	require.NoError(t, e.Set("contentdata.name", "Foo"))
	require.NoError(t, e.Set("flags.content_data_processed", true))
	require.NoError(t, e.Set("object.rollup", "l1"))
	assert.Equal(t, "Foo", e.GetString("contentdata.name"))

	for _, path := range []string{"object", "object.id", "object.type", ""} {
		err := e.Set(path, "x")
		assert.True(t, errors.IsType(err, errors.ErrTypeValidation), path)
	}
	assert.Equal(t, "do_31", e.ObjectID())
	assert.Equal(t, "Content", e.ObjectType())

	err := e.Set("edata.type.sub", "x")
	assert.True(t, errors.IsType(err, errors.ErrTypeValidation))
}

func TestGet_Missing(t *testing.T) {
	e := mustDecode(t, contentEvent)

	_, ok := e.Get("object.missing")
	assert.False(t, ok)
	_, ok = e.Get("edata.type.sub")
	assert.False(t, ok)
	assert.Equal(t, "", e.GetString("flags.dd_processed"))
	assert.Equal(t, "", e.GetString("nothing"))
}

func TestMarshalJSON(t *testing.T) {
	e := mustDecode(t, contentEvent)
	e.MarkFailed("strategy", "boom")

	data, err := json.Marshal(e)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "START:8f1c", decoded["mid"])
	assert.Equal(t, "strategy", decoded["metadata"].(map[string]interface{})["od_error_kind"])
	assert.Equal(t, float64(1506931800000), decoded["ets"])
}

func TestStatus_String(t *testing.T) {
	assert.Equal(t, "pending", StatusPending.String())
	assert.Equal(t, "skipped", StatusSkipped.String())
	assert.Equal(t, "failed", StatusFailed.String())
	assert.Equal(t, "denormalized", StatusDenormalized.String())
	assert.Equal(t, "unknown", Status(42).String())
}
