package api

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsBootstrapMethod(t *testing.T) {
	tests := []struct {
		method   string
		expected bool
	}{
		{"/cellar.Cellar/RequestCertificate", true},
		{"/cellar.Cellar/JoinCluster", true},
		{"/cellar.Cellar/Get", false},
		{"/cellar.Cellar/Create", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			require.Equal(t, tt.expected, isBootstrapMethod(tt.method))
		})
	}
}

func TestIsReadOnlyMethod(t *testing.T) {
	tests := []struct {
		method   string
		expected bool
	}{
		{"/cellar.Cellar/Get", true},
		{"/cellar.Cellar/GetOperation", true},
		{"/cellar.Cellar/List", true},
		{"/cellar.Cellar/ListOperations", true},
		{"/cellar.Cellar/Exists", true},
		{"/cellar.Cellar/GetClusterInfo", true},
		{"/cellar.Cellar/Create", false},
		{"/cellar.Cellar/Set", false},
		{"/cellar.Cellar/Remove", false},
		{"/cellar.Cellar/SubmitOperation", false},
		{"/cellar.Cellar/JoinCluster", false},
	}

	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			require.Equal(t, tt.expected, isReadOnlyMethod(tt.method))
		})
	}
}

func TestMethodNameOf(t *testing.T) {
	require.Equal(t, "Get", methodNameOf("/cellar.Cellar/Get"))
	require.Equal(t, "", methodNameOf("malformed"))
	require.Equal(t, "", methodNameOf(""))
}
