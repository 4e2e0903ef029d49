// Package credentials pulls the certificate material out of a control-plane
// node's administrator kubeconfig (admin.conf).
package credentials

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Material is the credential triple copied into the local kubeconfig. The
// values are the base64 blobs exactly as they appear in admin.conf; they are
// neither decoded nor validated.
type Material struct {
	Authority         string
	ClientCertificate string
	ClientKey         string
}

// MalformedError reports an admin.conf that does not hold exactly one
// cluster and one user with all three credential fields.
type MalformedError struct {
	Reason string
	Err    error
}

func (e *MalformedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed remote credential document: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("malformed remote credential document: %s", e.Reason)
}

func (e *MalformedError) Unwrap() error { return e.Err }

type adminConfig struct {
	Clusters []struct {
		Name    string `yaml:"name"`
		Cluster struct {
			CertificateAuthorityData string `yaml:"certificate-authority-data"`
		} `yaml:"cluster"`
	} `yaml:"clusters"`
	Users []struct {
		Name string `yaml:"name"`
		User struct {
			ClientCertificateData string `yaml:"client-certificate-data"`
			ClientKeyData         string `yaml:"client-key-data"`
		} `yaml:"user"`
	} `yaml:"users"`
}

// Extract parses raw admin.conf bytes and returns the credential material of
// its single cluster and single user.
func Extract(raw []byte) (Material, error) {
	var conf adminConfig
	if err := yaml.Unmarshal(raw, &conf); err != nil {
		return Material{}, &MalformedError{Reason: "invalid YAML", Err: err}
	}

	if n := len(conf.Clusters); n != 1 {
		return Material{}, &MalformedError{Reason: fmt.Sprintf("expected exactly one cluster, found %d", n)}
	}
	if n := len(conf.Users); n != 1 {
		return Material{}, &MalformedError{Reason: fmt.Sprintf("expected exactly one user, found %d", n)}
	}

	m := Material{
		Authority:         conf.Clusters[0].Cluster.CertificateAuthorityData,
		ClientCertificate: conf.Users[0].User.ClientCertificateData,
		ClientKey:         conf.Users[0].User.ClientKeyData,
	}

	switch {
	case m.Authority == "":
		return Material{}, &MalformedError{Reason: "cluster has no certificate-authority-data"}
	case m.ClientCertificate == "":
		return Material{}, &MalformedError{Reason: "user has no client-certificate-data"}
	case m.ClientKey == "":
		return Material{}, &MalformedError{Reason: "user has no client-key-data"}
	}
	return m, nil
}
