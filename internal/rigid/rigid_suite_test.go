package rigid_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestRigid(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Rigid Suite")
}
