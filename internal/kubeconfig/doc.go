// Package kubeconfig owns the local Kubernetes client configuration file.
//
// The file is kept as a yaml.v3 node tree instead of being decoded into
// client-go's api.Config: humans and other tools diff this file, so a save
// must not reorder keys, drop comments or lose fields client-go does not
// model (such as the "serveruser" cluster extension written by this tool).
// client-go is still used to reject files kubectl itself could not load.
//
// # Lifecycle
//
//	store, err := kubeconfig.Load(path)  // ErrConfigNotFound, *ParseError
//	err = store.Backup()                 // once, before the first mutation
//	changed, err := store.SetUserField("admin", kubeconfig.FieldClientKeyData, key)
//	err = store.Save()                   // atomic temp-file + rename
//
// Backup writes the bytes read by Load unmodified. Save of a document that
// was never changed writes those same bytes back, so repeated runs without
// remote changes leave the file byte-identical.
package kubeconfig
