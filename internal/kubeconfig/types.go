package kubeconfig

// Keys of the kubeconfig records touched by the updater. Every other key is
// carried through untouched.
const (
	FieldServer                   = "server"
	FieldCertificateAuthorityData = "certificate-authority-data"
	FieldServerUser               = "serveruser"
	FieldClientCertificateData    = "client-certificate-data"
	FieldClientKeyData            = "client-key-data"
)

const (
	sectionClusters = "clusters"
	sectionUsers    = "users"
	sectionContexts = "contexts"

	recordCluster = "cluster"
	recordUser    = "user"
	recordContext = "context"
)

// Cluster is a read-only view of a named entry of the clusters list.
type Cluster struct {
	Name                     string
	Server                   string
	CertificateAuthorityData string
	// ServerUser is the cached SSH login for the control-plane node, empty
	// until the first successful fetch.
	ServerUser string
}

// User is a read-only view of a named entry of the users list.
type User struct {
	Name                  string
	ClientCertificateData string
	ClientKeyData         string
}

// Context is a read-only view of a named entry of the contexts list.
type Context struct {
	Name      string
	Cluster   string
	User      string
	Namespace string
}
