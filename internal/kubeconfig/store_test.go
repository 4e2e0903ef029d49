package kubeconfig

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
	"k8s.io/client-go/tools/clientcmd"
)

const testKubeconfig = `# managed by hand, keep the comments
apiVersion: v1
kind: Config
preferences: {}
current-context: ctx-a
clusters:
- cluster:
    certificate-authority-data: T0xEQ0E=
    server: https://node-a.example.com:6443
    proxy-url: socks5://localhost:1080
  name: cluster-a
- cluster:
    server: https://node-b.example.com:6443
    serveruser: ops
  name: cluster-b
contexts:
- context:
    cluster: cluster-a
    user: user-a
    namespace: kube-system
  name: ctx-a
- context:
    cluster: cluster-b
    user: user-b
  name: ctx-b
users:
- name: user-a
  user:
    client-certificate-data: T0xEQ0VSVA==
    client-key-data: T0xES0VZ
    username: ignored-extra
- name: user-b
  user: {}
`

func writeKubeconfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

// keysOf returns the keys of the record stored under recordKey for the named
// entry of section, in file order.
func keysOf(t *testing.T, data []byte, section, recordKey, name string) []string {
	t.Helper()
	doc, err := ParseDocument(data)
	require.NoError(t, err)
	item := doc.entry(section, name)
	require.NotNil(t, item, "entry %s/%s", section, name)
	record := mappingValue(item, recordKey)
	require.NotNil(t, record)
	var keys []string
	for i := 0; i < len(record.Content); i += 2 {
		keys = append(keys, record.Content[i].Value)
	}
	return keys
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(t *testing.T) string
		wantErr func(t *testing.T, err error)
	}{
		{
			name:  "valid kubeconfig",
			setup: func(t *testing.T) string { return writeKubeconfig(t, testKubeconfig) },
		},
		{
			name:  "empty file",
			setup: func(t *testing.T) string { return writeKubeconfig(t, "") },
		},
		{
			name: "missing file",
			setup: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "does-not-exist")
			},
			wantErr: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrConfigNotFound)
			},
		},
		{
			name:  "malformed yaml",
			setup: func(t *testing.T) string { return writeKubeconfig(t, "clusters: [\n") },
			wantErr: func(t *testing.T, err error) {
				var parseErr *ParseError
				assert.ErrorAs(t, err, &parseErr)
			},
		},
		{
			name:  "top level is a list",
			setup: func(t *testing.T) string { return writeKubeconfig(t, "- a\n- b\n") },
			wantErr: func(t *testing.T, err error) {
				var parseErr *ParseError
				assert.ErrorAs(t, err, &parseErr)
			},
		},
		{
			name:  "rejected by client-go",
			setup: func(t *testing.T) string { return writeKubeconfig(t, "apiVersion: v1\nkind: Config\nclusters: 5\n") },
			wantErr: func(t *testing.T, err error) {
				var parseErr *ParseError
				assert.ErrorAs(t, err, &parseErr)
			},
		},
		{
			name:  "directory",
			setup: func(t *testing.T) string { return t.TempDir() },
			wantErr: func(t *testing.T, err error) {
				var parseErr *ParseError
				assert.ErrorAs(t, err, &parseErr)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, err := Load(tt.setup(t))
			if tt.wantErr != nil {
				require.Error(t, err)
				tt.wantErr(t, err)
				assert.Nil(t, store)
				return
			}
			require.NoError(t, err)
			assert.False(t, store.Dirty())
		})
	}
}

func TestStore_Lookups(t *testing.T) {
	store, err := Load(writeKubeconfig(t, testKubeconfig))
	require.NoError(t, err)

	contexts := store.Contexts()
	require.Len(t, contexts, 2)
	assert.Equal(t, Context{Name: "ctx-a", Cluster: "cluster-a", User: "user-a", Namespace: "kube-system"}, contexts[0])
	assert.Equal(t, Context{Name: "ctx-b", Cluster: "cluster-b", User: "user-b"}, contexts[1])

	cluster, ok := store.FindCluster("cluster-a")
	require.True(t, ok)
	assert.Equal(t, "https://node-a.example.com:6443", cluster.Server)
	assert.Equal(t, "T0xEQ0E=", cluster.CertificateAuthorityData)
	assert.Empty(t, cluster.ServerUser)

	cluster, ok = store.FindCluster("cluster-b")
	require.True(t, ok)
	assert.Equal(t, "ops", cluster.ServerUser)

	user, ok := store.FindUser("user-a")
	require.True(t, ok)
	assert.Equal(t, "T0xEQ0VSVA==", user.ClientCertificateData)
	assert.Equal(t, "T0xES0VZ", user.ClientKeyData)

	_, ok = store.FindCluster("nope")
	assert.False(t, ok)
	_, ok = store.FindUser("")
	assert.False(t, ok)

	ctx, ok := store.FindContext("ctx-b")
	require.True(t, ok)
	assert.Equal(t, "user-b", ctx.User)
	_, ok = store.FindContext("ctx-z")
	assert.False(t, ok)
}

func TestStore_SetFieldPreservesOrderAndComments(t *testing.T) {
	store, err := Load(writeKubeconfig(t, testKubeconfig))
	require.NoError(t, err)

	changed, err := store.SetClusterField("cluster-a", FieldCertificateAuthorityData, "TkVXQ0E=")
	require.NoError(t, err)
	assert.True(t, changed)
	changed, err = store.SetClusterField("cluster-a", FieldServerUser, "root")
	require.NoError(t, err)
	assert.True(t, changed)
	changed, err = store.SetUserField("user-b", FieldClientKeyData, "TkVXS0VZ")
	require.NoError(t, err)
	assert.True(t, changed)
	assert.True(t, store.Dirty())

	out, err := store.Bytes()
	require.NoError(t, err)

	assert.Equal(t,
		[]string{FieldCertificateAuthorityData, FieldServer, "proxy-url", FieldServerUser},
		keysOf(t, out, sectionClusters, recordCluster, "cluster-a"))
	assert.Equal(t,
		[]string{FieldClientCertificateData, FieldClientKeyData, "username"},
		keysOf(t, out, sectionUsers, recordUser, "user-a"))
	assert.Equal(t, []string{FieldClientKeyData}, keysOf(t, out, sectionUsers, recordUser, "user-b"))
	assert.Contains(t, string(out), "# managed by hand, keep the comments")

	// Top-level key order is untouched.
	var top yaml.Node
	require.NoError(t, yaml.Unmarshal(out, &top))
	var topKeys []string
	for i := 0; i < len(top.Content[0].Content); i += 2 {
		topKeys = append(topKeys, top.Content[0].Content[i].Value)
	}
	assert.Equal(t, []string{"apiVersion", "kind", "preferences", "current-context", "clusters", "contexts", "users"}, topKeys)

	// The result is still a kubeconfig kubectl accepts.
	cfg, err := clientcmd.Load(out)
	require.NoError(t, err)
	assert.Equal(t, []byte("NEWCA"), cfg.Clusters["cluster-a"].CertificateAuthorityData)
	assert.Equal(t, "ctx-a", cfg.CurrentContext)
}

func TestStore_SetFieldSameValueIsNoop(t *testing.T) {
	store, err := Load(writeKubeconfig(t, testKubeconfig))
	require.NoError(t, err)

	changed, err := store.SetUserField("user-a", FieldClientKeyData, "T0xES0VZ")
	require.NoError(t, err)
	assert.False(t, changed)
	assert.False(t, store.Dirty())

	out, err := store.Bytes()
	require.NoError(t, err)
	assert.Equal(t, testKubeconfig, string(out))
}

func TestDocument_SetFieldErrors(t *testing.T) {
	doc, err := ParseDocument([]byte(testKubeconfig + "- name: user-c\n  user: just-a-string\n"))
	require.NoError(t, err)

	_, err = doc.SetClusterField("missing", FieldServerUser, "root")
	assert.ErrorIs(t, err, ErrEntryNotFound)

	_, err = doc.SetUserField("user-c", FieldClientKeyData, "x")
	assert.Error(t, err)

	// A record key without a body decodes as null and is turned into a mapping.
	doc, err = ParseDocument([]byte("users:\n- name: bare\n  user:\n"))
	require.NoError(t, err)
	changed, err := doc.SetUserField("bare", FieldClientKeyData, "S0VZ")
	require.NoError(t, err)
	assert.True(t, changed)
	user, ok := doc.FindUser("bare")
	require.True(t, ok)
	assert.Equal(t, "S0VZ", user.ClientKeyData)
}

func TestStore_SetFieldQuotesAmbiguousScalars(t *testing.T) {
	store, err := Load(writeKubeconfig(t, testKubeconfig))
	require.NoError(t, err)

	_, err = store.SetClusterField("cluster-a", FieldServerUser, "1000")
	require.NoError(t, err)

	out, err := store.Bytes()
	require.NoError(t, err)
	reloaded, err := ParseDocument(out)
	require.NoError(t, err)
	cluster, ok := reloaded.FindCluster("cluster-a")
	require.True(t, ok)
	assert.Equal(t, "1000", cluster.ServerUser)

	var generic map[string]interface{}
	require.NoError(t, yaml.Unmarshal(out, &generic))
	first := generic["clusters"].([]interface{})[0].(map[string]interface{})["cluster"].(map[string]interface{})
	assert.IsType(t, "", first[FieldServerUser], "numeric-looking usernames must stay strings")
}

func TestStore_BackupWrittenOnce(t *testing.T) {
	path := writeKubeconfig(t, testKubeconfig)
	store, err := Load(path, WithBackupSuffix(".orig"))
	require.NoError(t, err)
	assert.Equal(t, path+".orig", store.BackupPath())

	require.NoError(t, store.Backup())
	assert.True(t, store.BackedUp())

	_, err = store.SetClusterField("cluster-a", FieldServerUser, "root")
	require.NoError(t, err)
	require.NoError(t, store.Save())
	require.NoError(t, store.Backup())

	backup, err := os.ReadFile(store.BackupPath())
	require.NoError(t, err)
	assert.Equal(t, testKubeconfig, string(backup))

	info, err := os.Stat(store.BackupPath())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestStore_BackupFailure(t *testing.T) {
	path := writeKubeconfig(t, testKubeconfig)
	// A suffix that turns the backup path into a child of a regular file.
	store, err := Load(path, WithBackupSuffix("/backup"))
	require.NoError(t, err)

	err = store.Backup()
	var backupErr *BackupError
	require.ErrorAs(t, err, &backupErr)
	assert.Equal(t, path+"/backup", backupErr.Path)
	assert.False(t, store.BackedUp())
}

func TestStore_SaveIsAtomic(t *testing.T) {
	path := writeKubeconfig(t, testKubeconfig)
	store, err := Load(path)
	require.NoError(t, err)
	_, err = store.SetUserField("user-a", FieldClientKeyData, "TkVXS0VZ")
	require.NoError(t, err)

	originalWriteFile := writeFile
	defer func() { writeFile = originalWriteFile }()
	// Interrupt the write half way through the temporary file.
	writeFile = func(filename string, data []byte, perm os.FileMode) error {
		f, err := os.CreateTemp(filepath.Dir(filename), ".tmp-"+filepath.Base(filename))
		require.NoError(t, err)
		_, err = f.Write(data[:len(data)/2])
		require.NoError(t, err)
		require.NoError(t, f.Close())
		require.NoError(t, os.Remove(f.Name()))
		return errors.New("interrupted")
	}

	err = store.Save()
	var writeErr *WriteError
	require.ErrorAs(t, err, &writeErr)
	assert.Equal(t, store.Path(), writeErr.Path)

	onDisk, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, testKubeconfig, string(onDisk))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.Equal(t, []string{filepath.Base(path)}, names)

	writeFile = originalWriteFile
	require.NoError(t, store.Save())
	user, _ := reloadUser(t, path, "user-a")
	assert.Equal(t, "TkVXS0VZ", user.ClientKeyData)
}

func reloadUser(t *testing.T, path, name string) (User, bool) {
	t.Helper()
	reloaded, err := Load(path)
	require.NoError(t, err)
	return reloaded.FindUser(name)
}

// kubectlKubeconfig is laid out the way kubectl writes it: sequence items at
// the parent key's column, record keys indented by four.
const kubectlKubeconfig = `apiVersion: v1
clusters:
- cluster:
    certificate-authority-data: T0xEQ0E=
    server: https://node-a.example.com:6443
  name: cluster-a
- cluster:
    server: "https://node-b.example.com:6443" # primary
  name: cluster-b
contexts:
- context:
    cluster: cluster-a
    user: user-a
  name: ctx-a
current-context: ctx-a
kind: Config
preferences: {}
users:
- name: user-a
  user:
    client-certificate-data: T0xEQ0VSVA==
    client-key-data: T0xES0VZ
- name: user-b
  user: {}
`

func TestStore_SaveRewritesOnlyChangedLines(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(t *testing.T, s *Store)
		want   func(original string) string
	}{
		{
			name: "replace user key",
			mutate: func(t *testing.T, s *Store) {
				_, err := s.SetUserField("user-a", FieldClientKeyData, "TkVXS0VZ")
				require.NoError(t, err)
			},
			want: func(original string) string {
				return strings.Replace(original, "client-key-data: T0xES0VZ", "client-key-data: TkVXS0VZ", 1)
			},
		},
		{
			name: "replace and append in one cluster",
			mutate: func(t *testing.T, s *Store) {
				_, err := s.SetClusterField("cluster-a", FieldCertificateAuthorityData, "TkVXQ0E=")
				require.NoError(t, err)
				_, err = s.SetClusterField("cluster-a", FieldServerUser, "root")
				require.NoError(t, err)
			},
			want: func(original string) string {
				out := strings.Replace(original, "certificate-authority-data: T0xEQ0E=", "certificate-authority-data: TkVXQ0E=", 1)
				return strings.Replace(out,
					"    server: https://node-a.example.com:6443\n",
					"    server: https://node-a.example.com:6443\n    serveruser: root\n", 1)
			},
		},
		{
			name: "quoted value keeps its style and comment",
			mutate: func(t *testing.T, s *Store) {
				_, err := s.SetClusterField("cluster-b", FieldServer, "https://node-c.example.com:6443")
				require.NoError(t, err)
			},
			want: func(original string) string {
				return strings.Replace(original,
					`"https://node-b.example.com:6443" # primary`,
					`"https://node-c.example.com:6443" # primary`, 1)
			},
		},
		{
			name: "empty flow record becomes a block",
			mutate: func(t *testing.T, s *Store) {
				_, err := s.SetUserField("user-b", FieldClientKeyData, "S0VZQg==")
				require.NoError(t, err)
				_, err = s.SetUserField("user-b", FieldClientCertificateData, "Q0VSVEI=")
				require.NoError(t, err)
			},
			want: func(original string) string {
				return strings.Replace(original,
					"  user: {}\n",
					"  user:\n    client-key-data: S0VZQg==\n    client-certificate-data: Q0VSVEI=\n", 1)
			},
		},
		{
			name: "appended ambiguous scalar is quoted",
			mutate: func(t *testing.T, s *Store) {
				_, err := s.SetClusterField("cluster-b", FieldServerUser, "1000")
				require.NoError(t, err)
			},
			want: func(original string) string {
				return strings.Replace(original,
					"# primary\n",
					"# primary\n    serveruser: \"1000\"\n", 1)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeKubeconfig(t, kubectlKubeconfig)
			store, err := Load(path)
			require.NoError(t, err)

			tt.mutate(t, store)
			require.NoError(t, store.Save())

			onDisk, err := os.ReadFile(path)
			require.NoError(t, err)
			want := tt.want(kubectlKubeconfig)
			require.NotEqual(t, kubectlKubeconfig, want)
			assert.Equal(t, want, string(onDisk))

			_, err = clientcmd.Load(onDisk)
			assert.NoError(t, err)
		})
	}
}

func TestStore_SaveKeepsSequenceIndentation(t *testing.T) {
	path := writeKubeconfig(t, kubectlKubeconfig)
	store, err := Load(path)
	require.NoError(t, err)
	_, err = store.SetUserField("user-a", FieldClientCertificateData, "TkVXQ0VSVA==")
	require.NoError(t, err)
	require.NoError(t, store.Save())

	onDisk, err := os.ReadFile(path)
	require.NoError(t, err)
	before := strings.Split(kubectlKubeconfig, "\n")
	after := strings.Split(string(onDisk), "\n")
	require.Len(t, after, len(before))

	var changed []int
	for i := range before {
		if before[i] != after[i] {
			changed = append(changed, i)
		}
	}
	require.Len(t, changed, 1)
	assert.Equal(t, "    client-certificate-data: TkVXQ0VSVA==", after[changed[0]])
	assert.Contains(t, after, "- cluster:")
	assert.Contains(t, after, "- name: user-a")
}

func TestDocument_EncodeFallsBackForNullRecord(t *testing.T) {
	doc, err := ParseDocument([]byte("users:\n- name: user-a\n  user:\n"))
	require.NoError(t, err)
	changed, err := doc.SetUserField("user-a", FieldClientKeyData, "S0VZ")
	require.NoError(t, err)
	assert.True(t, changed)

	out, err := doc.Encode()
	require.NoError(t, err)
	assert.Equal(t, []string{FieldClientKeyData}, keysOf(t, out, sectionUsers, recordUser, "user-a"))
}

func TestStore_SaveUnchangedIsByteIdentical(t *testing.T) {
	path := writeKubeconfig(t, testKubeconfig)
	store, err := Load(path)
	require.NoError(t, err)

	require.NoError(t, store.Save())

	onDisk, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, testKubeconfig, string(onDisk))
}

func TestStore_SaveFollowsSymlink(t *testing.T) {
	target := writeKubeconfig(t, testKubeconfig)
	link := filepath.Join(t.TempDir(), "config")
	require.NoError(t, os.Symlink(target, link))

	store, err := Load(link)
	require.NoError(t, err)
	resolved, err := filepath.EvalSymlinks(target)
	require.NoError(t, err)
	assert.Equal(t, resolved, store.Path())

	_, err = store.SetClusterField("cluster-b", FieldServerUser, "admin")
	require.NoError(t, err)
	require.NoError(t, store.Save())

	fi, err := os.Lstat(link)
	require.NoError(t, err)
	assert.NotZero(t, fi.Mode()&os.ModeSymlink, "link must survive the save")

	reloaded, err := Load(link)
	require.NoError(t, err)
	cluster, _ := reloaded.FindCluster("cluster-b")
	assert.Equal(t, "admin", cluster.ServerUser)
}
