package encoder

import (
	"strings"
	"testing"

	"github.com/mcncl/gotoon/internal/models"
	"github.com/mcncl/gotoon/internal/parser"
)

func encodeJSON(t *testing.T, jsonStr string) string {
	t.Helper()
	root, err := parser.ParseString(jsonStr)
	if err != nil {
		t.Fatalf("ParseString(%q) error = %v, wantErr nil", jsonStr, err)
	}
	toon, err := Encode(root)
	if err != nil {
		t.Fatalf("Encode() error = %v, wantErr nil", err)
	}
	return toon
}

func TestEncode_Documents(t *testing.T) {
	testCases := []struct {
		name    string
		jsonStr string
		want    string
	}{
		{
			"FlatObjectKeepsKeyOrder",
			`{"b": 1, "a": 2}`,
			"b,1\na,2",
		},
		{
			"NestedObjectSplicesWithDottedPath",
			`{"user": {"name": "Ann", "id": 7}, "ok": true}`,
			"user.name,Ann\nuser.id,7\nok,true",
		},
		{
			"ScalarTypes",
			`{"s": "x", "n": 1.5, "t": true, "f": false, "z": null}`,
			"s,x\nn,1.5\nt,true\nf,false\nz,null",
		},
		{
			"NumberLiteralSurvives",
			`{"price": 1200.50, "big": 9007199254740993}`,
			"price,1200.50\nbig,9007199254740993",
		},
		{
			"EmptyStringValue",
			`{"s": ""}`,
			"s,",
		},
		{
			"EmptyObjectRoot",
			`{}`,
			"",
		},
		{
			"EmptyNestedObjectVanishes",
			`{"a": {}, "b": 1}`,
			"b,1",
		},
		{
			"DeepEmptyObjectsVanish",
			`{"a": {"b": {}}}`,
			"",
		},
		{
			"EmptyArray",
			`{"tags": []}`,
			"tags[0]",
		},
		{
			"PrimitiveArray",
			`{"nums": [1, 2, 3]}`,
			"nums[3],1,2,3",
		},
		{
			"PrimitiveArrayMixedScalars",
			`{"vals": [1, "two", true, null]}`,
			"vals[4],1,two,true,null",
		},
		{
			"TabularArray",
			`{"data": [{"id": 1, "name": "A"}, {"id": 2, "name": "B"}]}`,
			"data[2]{id,name}\n  1,A\n  2,B",
		},
		{
			"TabularMissingKeyRendersNull",
			`{"data": [{"id": 1, "name": "A"}, {"id": 2}]}`,
			"data[2]{id,name}\n  1,A\n  2,null",
		},
		{
			"TabularHeaderIsFirstSeenUnion",
			`{"data": [{"a": 1}, {"b": 2}]}`,
			"data[2]{a,b}\n  1,null\n  null,2",
		},
		{
			"TabularNestedCellsEmbedCompactJSON",
			`{"data": [{"id": 1, "meta": {"x": 1, "y": [2, 3]}}]}`,
			"data[1]{id,meta}\n  1,{\"x\":1,\"y\":[2,3]}",
		},
		{
			"TabularEmptyObjectRow",
			`{"data": [{}]}`,
			"data[1]{}\n  ",
		},
		{
			"MixedArrayExpandsByIndex",
			`{"xs": [1, {"a": 2}, [3, 4], "x"]}`,
			"xs[0],1\nxs[1].a,2\nxs[2][2],3,4\nxs[3],x",
		},
		{
			"MixedArraySkipsEmptyObjectEntry",
			`{"xs": [{}, 1]}`,
			"xs[1],1",
		},
		{
			"RootArrayGetsDataLabel",
			`[{"id": 1, "name": "A"}, {"id": 2, "name": "B"}]`,
			"data[2]{id,name}\n  1,A\n  2,B",
		},
		{
			"RootPrimitiveArray",
			`[1, 2]`,
			"data[2],1,2",
		},
		{
			"RootEmptyArray",
			`[]`,
			"data[0]",
		},
		{
			"RootMixedArray",
			`[1, {"a": 2}]`,
			"data[0],1\ndata[1].a,2",
		},
		{
			"Composite",
			`{"id": 1, "user": {"name": "Ann"}, "tags": ["a", "b"], "items": [{"sku": "x", "qty": 2}, {"sku": "y"}]}`,
			"id,1\nuser.name,Ann\ntags[2],a,b\nitems[2]{sku,qty}\n  x,2\n  y,null",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := encodeJSON(t, tc.jsonStr)
			if got != tc.want {
				t.Errorf("Encode() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestEncode_RootScalars(t *testing.T) {
	testCases := []struct {
		name    string
		jsonStr string
		want    string
	}{
		{"Number", `42`, "42"},
		{"String", `"hi"`, "hi"},
		{"StringNeedingEscape", `"a,b"`, "\"a,b\""},
		{"True", `true`, "true"},
		{"Null", `null`, ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := encodeJSON(t, tc.jsonStr)
			if got != tc.want {
				t.Errorf("Encode() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestEncode_StringEscaping(t *testing.T) {
	got := encodeJSON(t, `{"msg": "He said, \"hi\""}`)
	want := "msg,\"He said, \"\"hi\"\"\""
	if got != want {
		t.Errorf("Encode() = %q, want %q", got, want)
	}
}

func TestEncode_EscapingInPrimitiveArray(t *testing.T) {
	got := encodeJSON(t, `["a,b", "c"]`)
	want := "data[2],\"a,b\",c"
	if got != want {
		t.Errorf("Encode() = %q, want %q", got, want)
	}
}

func TestEncode_Deterministic(t *testing.T) {
	jsonStr := `{"id": 1, "user": {"name": "Ann"}, "tags": ["a", "b"], "items": [{"sku": "x"}, {"qty": 2}]}`
	first := encodeJSON(t, jsonStr)
	for i := 0; i < 10; i++ {
		if got := encodeJSON(t, jsonStr); got != first {
			t.Fatalf("Encode() run %d = %q, want %q", i, got, first)
		}
	}
}

func TestEncode_TooDeeplyNested(t *testing.T) {
	// Hand-built trees bypass the parser's depth guard, so the encoder has
	// its own.
	value := models.NewString("x")
	for i := 0; i < MaxDepth+2; i++ {
		value = models.NewObject(models.NewField("k", value))
	}
	_, err := Encode(value)
	if err == nil {
		t.Fatalf("Encode() with %d nested objects, err = nil, want error", MaxDepth+2)
	}
	if !strings.Contains(err.Error(), "maximum nesting depth") {
		t.Errorf("Encode() err = %v, want error containing 'maximum nesting depth'", err)
	}
}

func TestEscapeValue(t *testing.T) {
	testCases := []struct {
		name  string
		input string
		want  string
	}{
		{"Plain", "hello", "hello"},
		{"Empty", "", ""},
		{"Comma", "a,b", "\"a,b\""},
		{"Newline", "a\nb", "\"a\nb\""},
		{"Quote", "say \"hi\"", "\"say \"\"hi\"\"\""},
		{"CommaAndQuote", "He said, \"hi\"", "\"He said, \"\"hi\"\"\""},
		{"SpacesAlone", "a b", "a b"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := EscapeValue(tc.input); got != tc.want {
				t.Errorf("EscapeValue(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}

func TestUnescapeValue_RoundTrip(t *testing.T) {
	inputs := []string{
		"",
		"plain",
		"a,b",
		"line\nbreak",
		"\"quoted\"",
		"He said, \"hi\"",
		"trailing\"",
		"\"",
		"comma, quote \" and\nnewline",
	}
	for _, input := range inputs {
		if got := UnescapeValue(EscapeValue(input)); got != input {
			t.Errorf("UnescapeValue(EscapeValue(%q)) = %q, want the input back", input, got)
		}
	}
}

func TestUnescapeValue_UnquotedPassesThrough(t *testing.T) {
	inputs := []string{"plain", "", "a b", "x\"y"}
	for _, input := range inputs {
		if got := UnescapeValue(input); got != input {
			t.Errorf("UnescapeValue(%q) = %q, want unchanged", input, got)
		}
	}
}
