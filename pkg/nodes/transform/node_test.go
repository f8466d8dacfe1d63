package transform

import (
	"context"
	"testing"

	"github.com/chainreact/chainreact/pkg/models"
)

func TestNewTransformNode(t *testing.T) {
	node, err := NewTransformNode("test-transform", map[string]any{"expression": "{{.vars.input}}"})
	if err != nil {
		t.Fatalf("Failed to create node: %v", err)
	}

	if node.ID() != "test-transform" {
		t.Errorf("Expected ID 'test-transform', got: %s", node.ID())
	}

	if node.Type() != models.NodeTypeTransform {
		t.Errorf("Expected type 'transform', got: %s", node.Type())
	}
}

func TestNewTransformNode_MissingExpression(t *testing.T) {
	_, err := NewTransformNode("test-transform", map[string]any{})
	if err == nil {
		t.Fatal("Expected error when expression is missing")
	}

	if err.Error() != "missing required field 'expression'" {
		t.Errorf("Expected specific error message, got: %s", err.Error())
	}
}

func TestTransformNode_Execute_BuildsObject(t *testing.T) {
	node, err := NewTransformNode("t", map[string]any{
		"expression": `{"file": "{{.trigger.item.name}}", "status": "{{.nodes.check.status}}"}`,
	})
	if err != nil {
		t.Fatalf("Failed to create node: %v", err)
	}

	execCtx := models.ExecutionContext{
		TriggerData: map[string]any{"item": map[string]any{"name": "a.pdf"}},
		NodeOutputs: map[string]any{"check": map[string]any{"status": "ok"}},
	}

	result, err := node.Execute(context.Background(), execCtx)
	if err != nil {
		t.Fatalf("Node execution failed: %v", err)
	}

	if !result.Success {
		t.Fatalf("Expected success, got error: %s", result.Error)
	}

	object, ok := result.Output["result"].(map[string]any)
	if !ok {
		t.Fatalf("Expected object result, got %T", result.Output["result"])
	}

	if object["file"] != "a.pdf" || object["status"] != "ok" {
		t.Errorf("Unexpected result: %v", object)
	}
}

func TestTransformNode_Execute_InvalidTemplate(t *testing.T) {
	node, err := NewTransformNode("t", map[string]any{"expression": "{{.trigger.item"})
	if err != nil {
		t.Fatalf("Failed to create node: %v", err)
	}

	result, err := node.Execute(context.Background(), models.ExecutionContext{})
	if err != nil {
		t.Fatalf("Node execution failed: %v", err)
	}

	if result.Success {
		t.Fatal("Expected failure for an unparsable template")
	}

	if result.Error == "" {
		t.Error("Expected non-empty error message")
	}
}
