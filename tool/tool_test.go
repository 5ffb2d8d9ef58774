package tool

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/growforge/planmesh/internal/util"
)

// -------------------- Schema & Validation Tests --------------------

type sampleSchema struct {
	A string `json:"a" description:"Field A"`
	B *int   `json:"b" description:"Optional pointer field"`
	C int    `json:"c,omitempty" description:"Omit empty field"`
}

func TestCreateSchema(t *testing.T) {
	schema := util.CreateSchema(sampleSchema{})
	props, ok := schema["properties"].(map[string]any)
	assert.True(t, ok)
	assert.Contains(t, props, "a")
	assert.Contains(t, props, "b")
	assert.Contains(t, props, "c")
	// Required only includes non-pointer, non-omitempty exported fields
	req, _ := schema["required"].([]string)
	if req == nil { // reflection may produce []any
		ifaceReq, _ := schema["required"].([]any)
		for _, v := range ifaceReq {
			req = append(req, v.(string))
		}
	}
	assert.ElementsMatch(t, []string{"a"}, req)
}

func TestValidateParameters(t *testing.T) {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"x": map[string]any{"type": "integer"},
		},
		// Use []any to mirror possible JSON decoded schema shape
		"required": []any{"x"},
	}

	err := util.ValidateParameters(map[string]any{"x": 5}, schema)
	assert.NoError(t, err)

	// JSON numbers decode as float64; whole values still satisfy integer.
	err = util.ValidateParameters(map[string]any{"x": float64(5)}, schema)
	assert.NoError(t, err)

	err = util.ValidateParameters(map[string]any{}, schema)
	assert.Error(t, err)
	var vErr *ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, "x", vErr.Field)

	err = util.ValidateParameters(map[string]any{"x": "not-int"}, schema)
	assert.Error(t, err)
	require.True(t, errors.As(err, &vErr))
	assert.Contains(t, vErr.Message, "expected type integer")
}

// -------------------- FunctionTool Tests --------------------

func clickParams() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"selector": map[string]any{"type": "string"},
		},
		"required": []string{"selector"},
	}
}

func TestFunctionTool_Success(t *testing.T) {
	ft := NewFunctionTool("click", "Clicks an element.", clickParams(),
		func(_ context.Context, args map[string]any) (any, error) {
			return "clicked " + args["selector"].(string), nil
		})

	out, err := ft.Call(context.Background(), map[string]any{"selector": "#submit"})
	require.NoError(t, err)
	assert.Equal(t, "clicked #submit", out)
}

func TestFunctionTool_ValidationFailure(t *testing.T) {
	ft := NewFunctionTool("click", "Clicks an element.", clickParams(),
		func(context.Context, map[string]any) (any, error) {
			t.Fatal("function must not run on invalid arguments")
			return nil, nil
		})

	_, err := ft.Call(context.Background(), map[string]any{})
	require.Error(t, err)
	var toolErr *ToolError
	require.True(t, errors.As(err, &toolErr))
	assert.Equal(t, CodeValidation, toolErr.Code)
	assert.Equal(t, "click", toolErr.Tool)
}

func TestFunctionTool_ExecutionFailureWrapped(t *testing.T) {
	ft := NewFunctionTool("click", "Clicks an element.", clickParams(),
		func(context.Context, map[string]any) (any, error) {
			return nil, errors.New("element not interactable")
		})

	_, err := ft.Call(context.Background(), map[string]any{"selector": "#x"})
	var toolErr *ToolError
	require.True(t, errors.As(err, &toolErr))
	assert.Equal(t, CodeExecution, toolErr.Code)
	assert.Contains(t, toolErr.Message, "not interactable")
}

func TestFunctionTool_CustomToolErrorPreserved(t *testing.T) {
	custom := NewToolError("click", "binding lost", CodeUnavailable)
	ft := NewFunctionTool("click", "Clicks an element.", clickParams(),
		func(context.Context, map[string]any) (any, error) {
			return nil, custom
		})

	_, err := ft.Call(context.Background(), map[string]any{"selector": "#x"})
	var toolErr *ToolError
	require.True(t, errors.As(err, &toolErr))
	assert.Equal(t, CodeUnavailable, toolErr.Code)
}

func TestDefinitions(t *testing.T) {
	ft := NewFunctionTool("click", "Clicks an element.", clickParams(),
		func(context.Context, map[string]any) (any, error) { return nil, nil })

	defs := Definitions([]Tool{ft})
	require.Len(t, defs, 1)
	assert.Equal(t, "click", defs[0].Name)
	assert.Equal(t, "Clicks an element.", defs[0].Description)
	assert.Equal(t, clickParams(), defs[0].Parameters)
}
