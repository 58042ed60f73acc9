package services

import (
	"regexp"

	"github.com/irgordon/ak/api/internal/core/domain"
)

// builtinServices is the static classification table. Order matters: the
// first matching pattern wins.
var builtinServices = []domain.ServiceDescriptor{
	{Name: "OpenAI", IsBuiltIn: true, APIURL: "https://api.openai.com/v1", KeyPattern: "^OPENAI_.*"},
	{Name: "Anthropic", IsBuiltIn: true, APIURL: "https://api.anthropic.com/v1", KeyPattern: "^ANTHROPIC_.*"},
	{Name: "GitHub", IsBuiltIn: true, APIURL: "https://api.github.com", KeyPattern: "^GITHUB_.*"},
	{Name: "GitLab", IsBuiltIn: true, APIURL: "https://gitlab.com/api/v4", KeyPattern: "^GITLAB_.*"},
	{Name: "Google", IsBuiltIn: true, APIURL: "https://www.googleapis.com", KeyPattern: "^GOOGLE_.*"},
	{Name: "AWS", IsBuiltIn: true, APIURL: "https://aws.amazon.com", KeyPattern: "^AWS_.*"},
	{Name: "Azure", IsBuiltIn: true, APIURL: "https://management.azure.com", KeyPattern: "^AZURE_.*"},
	{Name: "Stripe", IsBuiltIn: true, APIURL: "https://api.stripe.com/v1", KeyPattern: "^STRIPE_.*"},
	{Name: "Twilio", IsBuiltIn: true, APIURL: "https://api.twilio.com", KeyPattern: "^TWILIO_.*"},
	{Name: "SendGrid", IsBuiltIn: true, APIURL: "https://api.sendgrid.com/v3", KeyPattern: "^SENDGRID_.*"},
}

var builtinPatterns = func() []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(builtinServices))
	for i, s := range builtinServices {
		out[i] = regexp.MustCompile(s.KeyPattern)
	}
	return out
}()

// BuiltinServices returns a copy of the service table in classification order.
func BuiltinServices() []domain.ServiceDescriptor {
	out := make([]domain.ServiceDescriptor, len(builtinServices))
	copy(out, builtinServices)
	return out
}

// ClassifyKey labels a key name with the first builtin service whose
// pattern matches, or domain.UnknownService.
func ClassifyKey(name string) string {
	for i, re := range builtinPatterns {
		if re.MatchString(name) {
			return builtinServices[i].Name
		}
	}
	return domain.UnknownService
}
