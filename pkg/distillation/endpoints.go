package distillation

import (
	"fmt"
	"regexp"
)

var (
	serverlessEndpointPattern = regexp.MustCompile(`https://(?P<endpoint>[^.]+)\.(?P<region>[^.]+)\.models\.ai\.azure\.com(?:/(?P<path>.+))?`)
	onlineEndpointPattern     = regexp.MustCompile(`https://(?P<endpoint>[^.]+)\.(?P<region>[^.]+)\.inference\.ml\.azure\.com(?:/(?P<path>.+))?`)
	registryModelPattern      = regexp.MustCompile(`azureml://registries/(?P<registry>[^/]+)/models/(?P<model>[^/]+)(?:/versions/(?P<version>\d+))?`)
)

// Endpoint is a parsed model endpoint URL.
type Endpoint struct {
	Name   string
	Region string
	Path   string
}

// ParseServerlessEndpoint parses a serverless endpoint URL
// (https://<endpoint>.<region>.models.ai.azure.com[/<path>]).
func ParseServerlessEndpoint(url string) (Endpoint, bool) {
	return parseEndpoint(serverlessEndpointPattern, url)
}

// ParseOnlineEndpoint parses a managed online endpoint URL
// (https://<endpoint>.<region>.inference.ml.azure.com[/<path>]).
func ParseOnlineEndpoint(url string) (Endpoint, bool) {
	return parseEndpoint(onlineEndpointPattern, url)
}

func parseEndpoint(pattern *regexp.Regexp, url string) (Endpoint, bool) {
	m := pattern.FindStringSubmatch(url)
	if m == nil {
		return Endpoint{}, false
	}
	return Endpoint{
		Name:   m[pattern.SubexpIndex("endpoint")],
		Region: m[pattern.SubexpIndex("region")],
		Path:   m[pattern.SubexpIndex("path")],
	}, true
}

// RegistryModel is a parsed registry model reference
// (azureml://registries/<registry>/models/<model>[/versions/<version>]).
type RegistryModel struct {
	Registry string
	Model    string
	Version  string
}

// ParseRegistryModel parses a registry model asset reference.
func ParseRegistryModel(ref string) (RegistryModel, bool) {
	m := registryModelPattern.FindStringSubmatch(ref)
	if m == nil {
		return RegistryModel{}, false
	}
	return RegistryModel{
		Registry: m[registryModelPattern.SubexpIndex("registry")],
		Model:    m[registryModelPattern.SubexpIndex("model")],
		Version:  m[registryModelPattern.SubexpIndex("version")],
	}, true
}

// ModelSupport describes where a supported model may be resolved from.
type ModelSupport struct {
	SupportedRegistries []string
	VersionPattern      *regexp.Regexp
}

// SupportedTeacherModels maps registry model names to the registries and
// version shapes the generator accepts as teacher models.
var SupportedTeacherModels = map[string]ModelSupport{
	"Meta-Llama-3.1-405B-Instruct": {
		SupportedRegistries: []string{"azureml-meta"},
		VersionPattern:      regexp.MustCompile(`^\d+$`),
	},
}

// SupportedStudentModels maps registry model names to the registries and
// version shapes the generator accepts as student models.
var SupportedStudentModels = map[string]ModelSupport{
	"Meta-Llama-3.1-8B-Instruct": {
		SupportedRegistries: []string{"azureml-meta"},
		VersionPattern:      regexp.MustCompile(`^\d+$`),
	},
}

// ValidateTeacherModel checks a teacher model reference against the support map.
func ValidateTeacherModel(model, registry, version string) error {
	return validateModel("teacher", SupportedTeacherModels, model, registry, version)
}

// ValidateStudentModel checks a student model reference against the support map.
func ValidateStudentModel(model, registry, version string) error {
	return validateModel("student", SupportedStudentModels, model, registry, version)
}

func validateModel(kind string, supported map[string]ModelSupport, model, registry, version string) error {
	ms, ok := supported[model]
	if !ok {
		return fmt.Errorf("unsupported %s model %q", kind, model)
	}
	registryOK := false
	for _, r := range ms.SupportedRegistries {
		if r == registry {
			registryOK = true
			break
		}
	}
	if !registryOK {
		return fmt.Errorf("%s model %q is not supported from registry %q", kind, model, registry)
	}
	if version != "" && !ms.VersionPattern.MatchString(version) {
		return fmt.Errorf("%s model %q has unsupported version %q", kind, model, version)
	}
	return nil
}
