// Package opener hands a URL or file path to whatever the desktop
// associates with it.
package opener

// Open launches the platform's default handler for target. The handler
// is detached; Open returns once the launch has been issued, not when
// the viewer exits.
func Open(target string) error {
	return open(target)
}
