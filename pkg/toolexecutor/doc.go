// Package toolexecutor dispatches model tool requests to the coretools
// catalog.
//
// Invariants:
// - Every Request yields exactly one Result; Dispatch never panics.
// - The working_directory argument is always overwritten with the sandbox root.
// - Arguments are schema-validated and decoded into typed params before a tool runs.
//
// Usage:
//
//	exec, err := toolexecutor.New(catalog, toolexecutor.Options{Logger: log.Logger})
//	if err != nil {
//		return err
//	}
//	res := exec.Dispatch(ctx, toolexecutor.Request{
//		ID:        "call-1",
//		Name:      "read_file",
//		Arguments: map[string]any{"file_path": "main.py"},
//	})
//	fmt.Println(res.Text())
package toolexecutor
