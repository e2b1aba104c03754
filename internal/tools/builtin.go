package tools

import (
	"context"
	"encoding/json"
	"time"
)

// Builtins returns the demo tool set: a simulated weather lookup, a safe
// math evaluator, and a clock.
func Builtins() []Tool {
	return []Tool{WeatherTool(), CalculatorTool(), ClockTool()}
}

// NewBuiltinRegistry builds a registry pre-loaded with the demo tools.
func NewBuiltinRegistry() *Registry {
	r, err := NewRegistry(Builtins()...)
	if err != nil {
		// Builtins have fixed, distinct names.
		panic(err)
	}
	return r
}

// WeatherTool reports simulated conditions for a location. A real
// implementation would call a weather API.
func WeatherTool() Tool {
	return Tool{
		Name:        "get_current_weather",
		Description: "Get the current weather for a specific location",
		Parameters: ObjectSchema(map[string]Property{
			"location": {
				Type:        "string",
				Description: "The city and country, e.g., 'San Francisco, CA'",
			},
			"unit": {
				Type:        "string",
				Enum:        []string{"celsius", "fahrenheit"},
				Description: "The temperature unit to use. Defaults to celsius.",
			},
		}, "location"),
		Execute: func(_ context.Context, args map[string]any) (string, error) {
			location, _ := args["location"].(string)
			unit, _ := args["unit"].(string)
			if unit == "" {
				unit = "celsius"
			}
			return marshalToolOutput(map[string]any{
				"location":    location,
				"temperature": 22,
				"unit":        unit,
				"description": "Partly cloudy",
				"humidity":    65,
				"wind_speed":  10,
			})
		},
	}
}

// CalculatorTool evaluates arithmetic expressions. Evaluation errors are
// reported inside the result payload so the model can react to them; the
// tool call itself still succeeds.
func CalculatorTool() Tool {
	return Tool{
		Name:        "calculate_math",
		Description: "Calculate mathematical expressions safely",
		Parameters: ObjectSchema(map[string]Property{
			"expression": {
				Type:        "string",
				Description: "A mathematical expression to evaluate, e.g., '2 + 2' or 'sin(pi/2)'",
			},
		}, "expression"),
		Execute: func(_ context.Context, args map[string]any) (string, error) {
			expression, _ := args["expression"].(string)
			result, err := evalExpression(expression)
			if err != nil {
				return marshalToolOutput(map[string]any{
					"expression": expression,
					"error":      err.Error(),
				})
			}
			return marshalToolOutput(map[string]any{
				"expression": expression,
				"result":     result,
			})
		},
	}
}

// ClockTool reports the current date and time.
func ClockTool() Tool {
	return Tool{
		Name:        "get_current_time",
		Description: "Get the current date and time",
		Parameters:  ObjectSchema(map[string]Property{}),
		Execute: func(_ context.Context, _ map[string]any) (string, error) {
			now := time.Now().UTC()
			return marshalToolOutput(map[string]any{
				"current_time": now.Format("2006-01-02 15:04:05"),
				"timezone":     "UTC",
				"day_of_week":  now.Weekday().String(),
			})
		},
	}
}

func marshalToolOutput(payload map[string]any) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
