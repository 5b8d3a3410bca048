// Package preflight provides readiness checks for the filesystem paths,
// model files, gallery manifest, and capture devices rollcall depends on.
//
// These checks run in two contexts:
//   - "rollcall run" calls RunAll before opening the camera and refuses to
//     start when a required check fails.
//   - "rollcall doctor" prints every result, including optional ones.
//
// Camera and model checks are skipped for replayed traces.
package preflight
