package session

import (
	"strings"

	"github.com/inkmath/equation-solver/internal/models"
)

const emptyInput = "empty input"

// UserMessage turns a failure into the text shown to the user
func UserMessage(f *models.Failure) string {
	if f == nil {
		return ""
	}
	switch f.Kind {
	case models.InputError:
		if f.Message == emptyInput {
			return "Please draw something first!"
		}
		return "Invalid input: " + f.Message
	case models.ConfigError:
		if strings.HasPrefix(f.Message, "missing credential") {
			return "API key not configured. " + strings.TrimPrefix(strings.TrimPrefix(f.Message, "missing credential"), ": ")
		}
		return "Configuration error: " + f.Message
	case models.RecognitionError:
		return "Could not read the equation: " + f.Message
	case models.TimeoutError:
		return "Recognition timed out. Please try again."
	case models.ParseError:
		return "Could not understand the expression: " + f.Message
	case models.UnsupportedError:
		return "Unsupported expression: " + f.Message
	case models.EvaluationError:
		return "Could not solve: " + f.Message
	case models.PresentationError:
		return "Could not display the result"
	}
	return f.Error()
}
