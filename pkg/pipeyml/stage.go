package pipeyml

// Stage holds the name and the list of jobs bound to this pipeline stage.
// Stages run in sequence, while the jobs inside a stage run in parallel.
type Stage struct {
	Pos  Pos
	Name string
	Jobs []Job
}
