// Package artifact stores the files a planning run produces: the generated
// questions, the task plan, the matching result, and the risk report.
//
// Core types:
//   - Manager: saves and loads per-run artifact files
//   - LifecycleManager: archives and deletes old runs per a retention policy
//
// Example usage:
//
//	mgr := artifact.NewManager(artifact.Config{BaseDir: ".planflow"})
//	err := mgr.SaveJSON(runID, artifact.FilePlan, taskOutput)
//	var plan TaskOutput
//	err = mgr.LoadJSON(runID, artifact.FilePlan, &plan)
package artifact
