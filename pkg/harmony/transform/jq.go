// Package transform reshapes realtime messages for display, e.g. by the CLI's
// listen command.
package transform

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/itchyny/gojq"
	"github.com/tsarna/harmony/pkg/harmony/wire"
	"go.uber.org/zap"
)

// Filter maps a message to the value to show. It returns false when the
// message should be skipped.
type Filter func(msg wire.Message) (any, bool)

// Identity shows every message as its wire JSON object.
func Identity(msg wire.Message) (any, bool) {
	v, err := toJSONValue(msg)
	if err != nil {
		return nil, false
	}
	return v, true
}

// JqFilter compiles a jq query into a Filter.
//
// The query runs on the message as it appears on the wire, so ".type",
// ".channel_id" and, for message_created, ".content" and ".username" are all
// available. $type holds the message type.
//
//	// Only chat text
//	f, err := JqFilter(`select(.type == "message_created") | "\(.username): \(.content)"`, nil, logger)
//
//	// Everything about one channel
//	f, err := JqFilter(`select(.channel_id == "7c9e6679-7425-40de-944b-e07fc1f90ae7")`, nil, logger)
//
// vars are exposed to the query as additional $name variables.
//
// A query producing no output skips the message; several outputs are
// collected into an array. If the query fails at runtime the error is logged
// and the unfiltered message is shown.
func JqFilter(jqQuery string, vars map[string]any, logger *zap.Logger) (Filter, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	query, err := gojq.Parse(jqQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to parse JQ query '%s': %w", jqQuery, err)
	}

	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}
	sort.Strings(names)

	varNames := []string{"$type"}
	values := make([]any, 0, len(names)+1)
	values = append(values, nil)
	for _, name := range names {
		varNames = append(varNames, "$"+name)
		values = append(values, vars[name])
	}

	code, err := gojq.Compile(query, gojq.WithVariables(varNames))
	if err != nil {
		return nil, fmt.Errorf("failed to compile JQ query '%s': %w", jqQuery, err)
	}

	return func(msg wire.Message) (any, bool) {
		input, err := toJSONValue(msg)
		if err != nil {
			logger.Error("JQ filter: failed to encode message",
				zap.String("type", string(msg.MessageType())),
				zap.Error(err))
			return nil, false
		}

		args := make([]any, len(values))
		copy(args, values)
		args[0] = string(msg.MessageType())

		iter := code.RunWithContext(context.Background(), input, args...)

		var results []any
		for {
			result, ok := iter.Next()
			if !ok {
				break
			}
			if execErr, isErr := result.(error); isErr {
				logger.Error("JQ filter: JQ execution error",
					zap.String("jq_query", jqQuery),
					zap.String("type", string(msg.MessageType())),
					zap.Error(execErr))
				return input, true
			}
			results = append(results, result)
		}

		switch len(results) {
		case 0:
			return nil, false
		case 1:
			return results[0], true
		default:
			return results, true
		}
	}, nil
}

// toJSONValue converts msg to the plain maps and slices gojq operates on.
func toJSONValue(msg wire.Message) (any, error) {
	data, err := wire.Encode(msg)
	if err != nil {
		return nil, err
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}
