package pipeyml

const (
	propStages       = "stages"
	propVariables    = "variables"
	propServices     = "services"
	propVars         = "vars"
	propStage        = "stage"
	propScript       = "script"
	propBeforeScript = "before_script"
	propArtifacts    = "artifacts"
	propName         = "name"
	propPaths        = "paths"
	propWhen         = "when"
	propExpireIn     = "expire_in"
)

// ManifestFileName is the name of the pipeline manifest file that berth looks
// for in the root of a repository.
const ManifestFileName = ".berth-ci.yml"
