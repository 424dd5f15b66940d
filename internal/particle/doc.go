// Package particle models the decorative point cloud behind the landing
// page: a fixed shell of points generated once, a rotation that is a pure
// function of elapsed time and pointer position, and the rules for when
// the cloud is drawn at all versus the static gradient backdrop.
//
// The package has no rendering dependency. The browser script draws the
// cloud from the JSON the API serves, and cmd/particles draws it into a
// terminal; both use the same geometry from here.
package particle
