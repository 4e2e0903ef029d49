// Package config provides configuration management for kubeconfig-updater.
//
// Settings are layered: the built-in defaults are overridden by the user
// configuration file, which is in turn overridden by an explicit file passed
// with --config. Command-line flags are applied on top by the cmd package.
//
// # Configuration Layers
//
//  1. Default Configuration (embedded in binary)
//     - Kubeconfig resolved like kubectl ($KUBECONFIG, then ~/.kube/config)
//     - Backup suffix ".bak"; an unset remote path means /etc/kubernetes/admin.conf
//
//  2. User Configuration (~/.config/kubeconfig-updater/config.yaml)
//
//  3. Explicit Configuration (--config <file>)
//
// # Configuration Structure
//
//	kubeconfig: ~/.kube/config
//	backupSuffix: .bak
//	remotePath: /etc/kubernetes/admin.conf
//	verify: true
//	ssh:
//	  port: 22
//	  identityFile: ~/.ssh/id_ed25519
//	  knownHostsFile: ~/.ssh/known_hosts
//	  connectTimeout: 5s
//	  commandTimeout: 30s
//	  useSSHConfig: true
//
// Zero values in a later layer never reset a value set by an earlier one.
package config
