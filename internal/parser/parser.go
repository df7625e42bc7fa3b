package parser

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	stderrors "errors"

	"github.com/mcncl/gotoon/internal/errors"
	"github.com/mcncl/gotoon/internal/models"
)

// MaxDepth bounds how deeply nested an input document may be. Inputs nested
// past this fail with ErrTooDeep instead of exhausting the goroutine stack.
const MaxDepth = 1000

// Parse reads a single JSON value from an io.Reader into an ordered value
// tree. The decoder walks the token stream instead of unmarshalling into Go
// maps: map iteration would shuffle object keys, and key order decides line
// and column order in the encoded output.
func Parse(reader io.Reader) (models.Value, error) {
	decoder := json.NewDecoder(reader)
	decoder.UseNumber() // Ensure numbers keep their source literal

	root, err := parseValue(decoder, 0)
	if err != nil {
		return models.Value{}, mapDecodeError(err)
	}

	// Anything after the first value other than trailing whitespace is
	// rejected. More() peeks past whitespace, so a clean EOF is fine.
	if decoder.More() {
		if _, err := decoder.Token(); err != nil {
			return models.Value{}, errors.NewParsingError("invalid trailing data after first JSON value", err)
		}
		return models.Value{}, errors.NewParsingError("multiple JSON values found at the root", errors.ErrMultipleJSON)
	}

	return root, nil
}

// ParseString parses JSON from a string
func ParseString(jsonString string) (models.Value, error) {
	if strings.TrimSpace(jsonString) == "" {
		return models.Value{}, errors.NewInputError("input string is empty", errors.ErrEmptyInput)
	}
	reader := strings.NewReader(jsonString)
	return Parse(reader)
}

// ParseFile parses JSON from a file path
func ParseFile(filePath string) (models.Value, error) {
	if strings.TrimSpace(filePath) == "" {
		return models.Value{}, errors.NewInputError("file path is empty", errors.ErrInvalidFilePath)
	}
	file, err := os.Open(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return models.Value{}, errors.NewInputError(
				fmt.Sprintf("file '%s' not found", filePath),
				errors.ErrFileNotFound,
			)
		}
		return models.Value{}, errors.NewInputError(
			fmt.Sprintf("failed to open file '%s'", filePath),
			err,
		)
	}
	defer func() {
		if err := file.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Error closing file: %v\n", err)
		}
	}()

	stat, err := file.Stat()
	if err != nil {
		return models.Value{}, errors.NewInputError(
			fmt.Sprintf("failed to get file stats for '%s'", filePath),
			err,
		)
	}
	if stat.Size() == 0 {
		return models.Value{}, errors.NewInputError(
			fmt.Sprintf("input file '%s' is empty", filePath),
			errors.ErrFileEmpty,
		)
	}

	return Parse(file)
}

// parseValue reads the next complete value from the token stream.
func parseValue(decoder *json.Decoder, depth int) (models.Value, error) {
	if depth > MaxDepth {
		return models.Value{}, errors.ErrTooDeep
	}
	tok, err := decoder.Token()
	if err != nil {
		return models.Value{}, err
	}
	return parseToken(decoder, tok, depth)
}

func parseToken(decoder *json.Decoder, tok json.Token, depth int) (models.Value, error) {
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			return parseObject(decoder, depth)
		case '[':
			return parseArray(decoder, depth)
		}
		return models.Value{}, fmt.Errorf("unexpected delimiter %q", t.String())
	case nil:
		return models.NewNull(), nil
	case bool:
		return models.NewBool(t), nil
	case json.Number:
		return models.NewNumber(t), nil
	case string:
		return models.NewString(t), nil
	default:
		return models.Value{}, fmt.Errorf("unexpected token %v", tok)
	}
}

// parseObject consumes tokens up to and including the closing brace,
// collecting fields in the order they appear in the source. A duplicate key
// keeps its first position but takes the last value, the same way decoding
// into a map would resolve it.
func parseObject(decoder *json.Decoder, depth int) (models.Value, error) {
	var fields []models.Field
	index := make(map[string]int)
	for decoder.More() {
		keyTok, err := decoder.Token()
		if err != nil {
			return models.Value{}, truncated(err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return models.Value{}, fmt.Errorf("object key is not a string: %v", keyTok)
		}
		value, err := parseValue(decoder, depth+1)
		if err != nil {
			return models.Value{}, truncated(err)
		}
		if at, seen := index[key]; seen {
			fields[at].Value = value
			continue
		}
		index[key] = len(fields)
		fields = append(fields, models.Field{Key: key, Value: value})
	}
	if _, err := decoder.Token(); err != nil { // closing '}'
		return models.Value{}, truncated(err)
	}
	return models.NewObject(fields...), nil
}

func parseArray(decoder *json.Decoder, depth int) (models.Value, error) {
	var items []models.Value
	for decoder.More() {
		item, err := parseValue(decoder, depth+1)
		if err != nil {
			return models.Value{}, truncated(err)
		}
		items = append(items, item)
	}
	if _, err := decoder.Token(); err != nil { // closing ']'
		return models.Value{}, truncated(err)
	}
	return models.NewArray(items...), nil
}

// truncated upgrades a bare EOF seen inside an object or array. The decoder
// delivers io.EOF for a document that simply stops mid-structure, but once a
// container is open that is a syntax problem, not empty input.
func truncated(err error) error {
	if stderrors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}

// mapDecodeError translates raw decoder failures into the error taxonomy.
func mapDecodeError(err error) error {
	if stderrors.Is(err, io.EOF) {
		return errors.NewParsingError("no JSON value found in input", errors.ErrEmptyInput)
	}
	if stderrors.Is(err, io.ErrUnexpectedEOF) {
		return errors.NewParsingError("unexpected end of JSON input", errors.ErrInvalidJSON)
	}
	if stderrors.Is(err, errors.ErrTooDeep) {
		return errors.NewParsingError(
			fmt.Sprintf("input exceeds maximum nesting depth of %d", MaxDepth),
			errors.ErrTooDeep,
		)
	}
	var syntaxError *json.SyntaxError
	if stderrors.As(err, &syntaxError) {
		return errors.NewParsingError(
			fmt.Sprintf("JSON syntax error at offset %d", syntaxError.Offset),
			errors.ErrInvalidJSON,
		)
	}
	return errors.NewParsingError("failed to decode JSON", err)
}
