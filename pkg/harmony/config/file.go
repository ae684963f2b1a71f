package config

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/tsarna/go2cty2go"
	"github.com/zclconf/go-cty/cty"
)

type fileSettings struct {
	APIURL               string `hcl:"api_url,optional"`
	WSURL                string `hcl:"ws_url,optional"`
	StatePath            string `hcl:"state_path,optional"`
	LogLevel             string `hcl:"log_level,optional"`
	HistoryMaxAge        string `hcl:"history_max_age,optional"`
	HistoryPruneSchedule string `hcl:"history_prune_schedule,optional"`
	RequestTimeout       string `hcl:"request_timeout,optional"`
	DialTimeout          string `hcl:"dial_timeout,optional"`

	Listen *listenBlock `hcl:"listen,block"`
}

type listenBlock struct {
	Filter string    `hcl:"filter,optional"`
	Vars   cty.Value `hcl:"vars,optional"`
}

// ParseFile reads HCL settings from path.
func ParseFile(path string, environ map[string]string) (Settings, hcl.Diagnostics) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return Settings{}, diags
	}
	return decode(file.Body, environ)
}

// ParseBytes reads HCL settings from src. filename is only used in
// diagnostics.
func ParseBytes(src []byte, filename string, environ map[string]string) (Settings, hcl.Diagnostics) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return Settings{}, diags
	}
	return decode(file.Body, environ)
}

func decode(body hcl.Body, environ map[string]string) (Settings, hcl.Diagnostics) {
	evalCtx := &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"env": EnvObject(environ),
		},
		Functions: Functions(),
	}

	var fs fileSettings
	diags := gohcl.DecodeBody(body, evalCtx, &fs)
	if diags.HasErrors() {
		return Settings{}, diags
	}

	s := Settings{
		APIURL:               fs.APIURL,
		WSURL:                fs.WSURL,
		StatePath:            fs.StatePath,
		LogLevel:             fs.LogLevel,
		HistoryMaxAge:        fs.HistoryMaxAge,
		HistoryPruneSchedule: fs.HistoryPruneSchedule,
		RequestTimeout:       fs.RequestTimeout,
		DialTimeout:          fs.DialTimeout,
	}

	if fs.Listen != nil {
		s.ListenFilter = fs.Listen.Filter

		vars, varDiags := listenVars(fs.Listen.Vars)
		diags = diags.Extend(varDiags)
		s.ListenVars = vars
	}

	return s, diags
}

func listenVars(v cty.Value) (map[string]any, hcl.Diagnostics) {
	if v.IsNull() {
		return nil, nil
	}

	ty := v.Type()
	if !ty.IsObjectType() && !ty.IsMapType() {
		return nil, hcl.Diagnostics{&hcl.Diagnostic{
			Severity: hcl.DiagError,
			Summary:  "Invalid listen vars",
			Detail:   fmt.Sprintf("vars must be an object, got %s", ty.FriendlyName()),
		}}
	}

	converted, err := go2cty2go.CtyToAny(v)
	if err != nil {
		return nil, hcl.Diagnostics{&hcl.Diagnostic{
			Severity: hcl.DiagError,
			Summary:  "Invalid listen vars",
			Detail:   err.Error(),
		}}
	}

	vars, ok := converted.(map[string]any)
	if !ok {
		return nil, hcl.Diagnostics{&hcl.Diagnostic{
			Severity: hcl.DiagError,
			Summary:  "Invalid listen vars",
			Detail:   fmt.Sprintf("vars converted to %T", converted),
		}}
	}
	return vars, nil
}
