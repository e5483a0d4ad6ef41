package respond

import "os"

// HandleDelete removes a single target file if present within the route
// root; a directory target
// is rejected (409); success is 204.
func HandleDelete(fsPath, root string) (*Response, error) {
	f, err := openUnderRoot(fsPath, root)
	if err != nil {
		if os.IsNotExist(err) {
			return New(404, StatusText(404)), nil
		}
		return New(403, StatusText(403)), nil
	}
	info, statErr := f.Stat()
	f.Close()
	if statErr != nil {
		return New(500, StatusText(500)), nil
	}
	if info.IsDir() {
		return New(409, "Conflict"), nil
	}
	if err := os.Remove(fsPath); err != nil {
		return New(500, StatusText(500)), nil
	}
	resp := New(204, StatusText(204))
	resp.Kind = BodyNone
	return resp, nil
}
