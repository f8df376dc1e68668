// Package coretools implements the fixed catalog of tools a model may call:
// list_directory, read_file, write_file and run_script.
//
// Every tool is confined to a workspace.Root. The catalog never panics and
// never lets an I/O fault escape as anything other than an *Error whose
// message is the text shown to the model.
//
// Usage:
//
//	catalog, err := coretools.NewCatalog(coretools.Options{
//		Root:    root,
//		Sandbox: sb,
//	})
//	if err != nil {
//		return err
//	}
//	out, err := catalog.ReadFile(ctx, coretools.ReadFileParams{
//		WorkingDirectory: root.Path(),
//		FilePath:         "main.py",
//	})
//
// Arguments normally arrive from the model as an untyped map. The
// toolexecutor package validates them against Declaration.Schema and decodes
// them into the typed params structs defined here.
package coretools
