package tahu

import "strings"

// Reserved metric and property names and the string-prefix conventions
// layered on top of plain Sparkplug-B by Icypaw.
const (
	BdSeqMetricName = "bdSeq"

	commandPrefix            = "command"
	templateDefinitionPrefix = "_types_"

	// PropertyWritable marks a metric as settable by a client.
	PropertyWritable = "Writable"
	// PropertyLow and PropertyHigh bound a scalar's legal range.
	PropertyLow  = "Low"
	PropertyHigh = "High"
	// PropertyUnit names the engineering unit of a metric's value.
	PropertyUnit = "Unit"
	// PropertyEndpointProperty marks a metric that describes the endpoint
	// itself (e.g. software version) rather than its observed state.
	PropertyEndpointProperty = "ICPWEndpointProperty"
	// PropertyCommand marks a metric that is a command template holder.
	PropertyCommand = "ICPWCommand"
	// PropertyServer identifies the server software and version that
	// published a birth certificate.
	PropertyServer = "ICPWServer"
)

// IsBdSeq reports whether name is the reserved birth/death sequence
// metric.
func IsBdSeq(name string) bool {
	return name == BdSeqMetricName
}

// IsCommand reports whether name follows the command/<name> convention.
func IsCommand(name string) bool {
	head, _, found := strings.Cut(name, "/")
	return found && strings.ToLower(head) == commandPrefix
}

// MakeCommandName returns the conventional wire name for a command with
// the given base name.
func MakeCommandName(base string) string {
	return commandPrefix + "/" + base
}

// BaseNameFromCommand strips the command/ prefix from a conventional
// command name. Panics if name is not a command name; callers should
// guard with IsCommand first.
func BaseNameFromCommand(name string) string {
	head, rest, found := strings.Cut(name, "/")
	if !found || strings.ToLower(head) != commandPrefix {
		panic("tahu: not a command name: " + name)
	}
	return rest
}

// IsTemplateDefinition reports whether name follows the _types_/<name>
// convention.
func IsTemplateDefinition(name string) bool {
	head, _, found := strings.Cut(name, "/")
	return found && strings.ToLower(head) == templateDefinitionPrefix
}

// MakeTemplateDefinitionName returns the conventional wire name for a
// template definition with the given base name.
func MakeTemplateDefinitionName(base string) string {
	return templateDefinitionPrefix + "/" + base
}

// BaseNameFromTemplateDefinition strips the _types_/ prefix from a
// conventional template definition name.
func BaseNameFromTemplateDefinition(name string) string {
	head, rest, found := strings.Cut(name, "/")
	if !found || head != templateDefinitionPrefix {
		panic("tahu: not a template definition name: " + name)
	}
	return rest
}

// IsMetric reports whether name is an ordinary metric by convention,
// i.e. none of bdSeq, a command, or a template definition.
func IsMetric(name string) bool {
	return !IsBdSeq(name) && !IsCommand(name) && !IsTemplateDefinition(name)
}
