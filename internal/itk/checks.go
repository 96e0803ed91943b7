package itk

import "fmt"

// Fault messages rendered into the error template.
const (
	MessageActionMismatch        = "Manifest action does not match service action"
	MessageManifestPayloadCount  = "Manifest count does not match payload count"
	MessageManifestInstanceCount = "The number of manifest instances does not match the manifest count specified"
	MessagePayloadIDMismatch     = "Payload IDs do not map to Manifest IDs"
)

// Outcome is the verdict of one check. A failed outcome carries either a
// Message for the templated fault body or Generic for the fixed fault body.
type Outcome struct {
	Failed  bool
	Message string
	Generic bool
	// Reason is logged, never returned to the caller.
	Reason string
}

var pass = Outcome{}

func fail(message, reason string, args ...interface{}) Outcome {
	return Outcome{Failed: true, Message: message, Reason: fmt.Sprintf(reason, args...)}
}

// Check is one named structural rule over a parsed envelope. Fn returns an
// error only for malformed input.
type Check struct {
	Name string
	Fn   func(env *Envelope) (Outcome, error)
}

// Checks is the evaluation order. The first failing check decides the
// response, so the order is part of the contract.
var Checks = []Check{
	{Name: "action_service_match", Fn: checkActionService},
	{Name: "declared_counts_match", Fn: checkDeclaredCounts},
	{Name: "manifest_count_vs_actual", Fn: checkManifestCountVsActual},
	{Name: "payload_count_vs_actual", Fn: checkPayloadCountVsActual},
	{Name: "payload_ids_subset_of_manifest_ids", Fn: checkPayloadIDsInManifest},
}

// checkActionService requires the SOAP Action to equal the ITK service
// attribute, compared case-sensitively.
func checkActionService(env *Envelope) (Outcome, error) {
	service, err := env.Service()
	if err != nil {
		return pass, err
	}
	if env.Action() != service {
		return fail(MessageActionMismatch, "action type does not match service type: (action, service) (%q, %q)",
			env.Action(), service), nil
	}
	return pass, nil
}

// checkDeclaredCounts compares the declared manifest and payloads count
// attributes as written, not the element counts.
func checkDeclaredCounts(env *Envelope) (Outcome, error) {
	manifestCount, err := env.ManifestCount()
	if err != nil {
		return pass, err
	}
	payloadCount, err := env.PayloadCount()
	if err != nil {
		return pass, err
	}
	if manifestCount != payloadCount {
		return fail(MessageManifestPayloadCount, "error in manifest count: (manifest count, payload count) (%s, %s)",
			manifestCount, payloadCount), nil
	}
	return pass, nil
}

func checkManifestCountVsActual(env *Envelope) (Outcome, error) {
	declared, err := env.ManifestCount()
	if err != nil {
		return pass, err
	}
	expected, err := parseCount("manifest count", declared)
	if err != nil {
		return pass, err
	}
	if actual := env.ManifestItems(); expected != actual {
		return fail(MessageManifestInstanceCount, "manifest count did not equal number of instances: (expected : found) - (%d : %d)",
			expected, actual), nil
	}
	return pass, nil
}

// checkPayloadCountVsActual answers with the generic fault body rather
// than a templated message, unlike every other check.
func checkPayloadCountVsActual(env *Envelope) (Outcome, error) {
	declared, err := env.PayloadCount()
	if err != nil {
		return pass, err
	}
	expected, err := parseCount("payload count", declared)
	if err != nil {
		return pass, err
	}
	if actual := env.PayloadItems(); expected != actual {
		return Outcome{
			Failed:  true,
			Generic: true,
			Reason:  fmt.Sprintf("payload count does not match number of instances - expected: %d found: %d", expected, actual),
		}, nil
	}
	return pass, nil
}

// checkPayloadIDsInManifest requires every payload id to appear among the
// manifest ids. Manifest ids without a payload are accepted.
func checkPayloadIDsInManifest(env *Envelope) (Outcome, error) {
	payloadIDs, err := env.PayloadIDs()
	if err != nil {
		return pass, err
	}
	manifestIDs, err := env.ManifestIDs()
	if err != nil {
		return pass, err
	}

	known := make(map[string]struct{}, len(manifestIDs))
	for _, id := range manifestIDs {
		known[id] = struct{}{}
	}
	var unknown []string
	for _, id := range payloadIDs {
		if _, ok := known[id]; !ok {
			unknown = append(unknown, id)
		}
	}
	if len(unknown) > 0 {
		return fail(MessagePayloadIDMismatch, "payload ids %v do not match manifest ids", unknown), nil
	}
	return pass, nil
}
