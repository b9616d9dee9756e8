package tool_test

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/flemzord/mategen/internal/provider"
	"github.com/flemzord/mategen/internal/tool"
)

func TestParsePolicy(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in         string
		want       tool.Policy
		wantChoice provider.ToolChoice
		wantErr    bool
	}{
		{in: "", want: tool.Policy{Mode: tool.PolicyAuto}, wantChoice: provider.ToolChoiceAuto},
		{in: "auto", want: tool.Policy{Mode: tool.PolicyAuto}, wantChoice: provider.ToolChoiceAuto},
		{in: " none ", want: tool.Policy{Mode: tool.PolicyNone}, wantChoice: provider.ToolChoiceNone},
		{in: "force:sql_inter", want: tool.Policy{Mode: tool.PolicyForce, Tool: "sql_inter"}, wantChoice: "sql_inter"},
		{in: "force:", wantErr: true},
		{in: "always", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()

			got, err := tool.ParsePolicy(tt.in)
			if tt.wantErr {
				if !errors.Is(err, tool.ErrInvalidPolicy) {
					t.Errorf("ParsePolicy(%q) error = %v, want ErrInvalidPolicy", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParsePolicy(%q) error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParsePolicy(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
			if got.ToolChoice() != tt.wantChoice {
				t.Errorf("ToolChoice() = %q, want %q", got.ToolChoice(), tt.wantChoice)
			}
			roundTrip, err := tool.ParsePolicy(got.String())
			if err != nil || roundTrip != got {
				t.Errorf("ParsePolicy(%q) = %+v, %v", got.String(), roundTrip, err)
			}
		})
	}
}

func TestVars(t *testing.T) {
	t.Parallel()

	v := tool.NewVars()
	v.Set("b", 2)
	v.Set("a", 1)
	v.Set("a", 3)

	if got, _ := v.Get("a"); got != 3 {
		t.Errorf("Get(a) = %v, want 3", got)
	}
	if _, ok := v.Get("missing"); ok {
		t.Error("Get(missing) reported ok")
	}
	if want := []string{"a", "b"}; !slices.Equal(v.Names(), want) {
		t.Errorf("Names() = %v, want %v", v.Names(), want)
	}

	snap := v.Snapshot()
	snap["c"] = 4
	if _, ok := v.Get("c"); ok {
		t.Error("Snapshot() shares storage with the space")
	}
}

func TestFunc(t *testing.T) {
	t.Parallel()

	f := &tool.Func{
		ToolName:        "echo",
		ToolDescription: "Echo the text argument",
		Fn: func(_ context.Context, args map[string]any, _ tool.Env) (string, error) {
			return tool.StringArg(args, "text")
		},
	}
	if f.Schema() != nil {
		t.Error("Schema() should be nil when Parameters is unset")
	}
	got, err := f.Execute(context.Background(), map[string]any{"text": "hi"}, tool.Env{})
	if err != nil || got != "hi" {
		t.Errorf("Execute() = %q, %v", got, err)
	}
	if _, err := f.Execute(context.Background(), map[string]any{"text": 1}, tool.Env{}); err == nil {
		t.Error("Execute() with a non-string argument succeeded")
	}
}

func TestNumberArg(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		value   any
		want    float64
		wantErr bool
	}{
		{name: "float", value: 2.5, want: 2.5},
		{name: "string", value: "4", want: 4},
		{name: "bool", value: true, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := tool.NumberArg(map[string]any{"n": tt.value}, "n")
			if (err != nil) != tt.wantErr {
				t.Fatalf("NumberArg() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("NumberArg() = %v, want %v", got, tt.want)
			}
		})
	}
	if _, err := tool.NumberArg(map[string]any{}, "n"); err == nil {
		t.Error("NumberArg() on missing key succeeded")
	}
}
