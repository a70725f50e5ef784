package policy

// Required descriptor fields. Order matters: validation error messages list
// missing fields in this order, not discovery order.
var (
	sourceRequiredFields = []string{"publicKey", "capabilities", "issuer", "issuedOn", "expired", "expiresAt"}
	targetRequiredFields = []string{"publicKey", "issuer"}
)

// ValidateSource checks that a source descriptor carries every required
// claim field. Values are not inspected beyond presence.
func ValidateSource(source map[string]any) error {
	return validateFields("source", source, sourceRequiredFields)
}

// ValidateTarget checks that a target descriptor carries every required
// identity field.
func ValidateTarget(target map[string]any) error {
	return validateFields("target", target, targetRequiredFields)
}

// ValidateAction checks that the action is a string value. Actions arrive at
// the engine boundary as decoded JSON, so the type is not guaranteed.
func ValidateAction(action any) error {
	if _, ok := action.(string); !ok {
		return &ValidationError{Subject: "action"}
	}
	return nil
}

func validateFields(subject string, descriptor map[string]any, required []string) error {
	var missing []string
	for _, field := range required {
		if _, ok := descriptor[field]; !ok {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return &ValidationError{Subject: subject, Missing: missing}
	}
	return nil
}
