// Package planflow turns a free-text project brief into a structured,
// capability-matched delivery plan by running seven reasoning stages over a
// typed flowgraph state machine.
//
// The pipeline is resumable: when the clarification stage produces questions
// for the user, the run suspends, its full state is persisted through a
// runstore.Store, and control returns to the caller with a SuspensionHandle.
// Resume picks the run back up with the user's answers and continues from
// task decomposition. No goroutine waits while a run is suspended.
//
// Core pieces in this package:
//
//   - Engine      - builds the stage graphs, runs Start and Resume
//   - RunState    - the single state value threaded through every node
//   - Schema guard (schema.go) - normalizes arbitrary model output into
//     typed stage outputs without ever failing
//   - Status      - closed stage-status enum with a severity-ordered fold
//
// Supporting subpackages:
//
//   - runstore/ - persisted run records (file, memory, sqlite)
//   - team/     - team capability model and roster client
//   - prompt/   - stage prompt templates (embedded defaults, file overrides)
//   - stage/    - stage kinds and model-tier selection
//   - trace/    - per-run stage execution traces
//   - artifact/ - per-run artifact files (plan.json, risk-report.json, ...)
//   - notify/   - run lifecycle notifications (log, webhook, slack)
//   - config/   - hierarchical configuration resolution
//   - context/  - service injection and project brief assembly
//   - http/     - shared backend HTTP client (retry, typed errors, paging)
//
// Services reach nodes through context injection (see context/), so every
// collaborator - the LLM client included - is swappable in tests.
package planflow
