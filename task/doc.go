// Package task implements named health checks with an explicit run
// lifecycle, and a registry that executes them in ordered groups.
//
// A Task moves from not_started to running to finished on every run and can
// run again once finished. Its Result is gray until a run finishes, then
// green on success, yellow on failure, or red on failure of a critical task.
//
// A Registry runs a subset of its tasks grouped by Order: groups run one
// after another in ascending order, and the tasks of one group run
// concurrently. A failing task never aborts its group or the later ones.
package task
