package bundle

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autoschematic-sh/autoschematic/internal/connector"
)

type fakeBundle struct {
	filterResp connector.FilterResponse
	elements   []Element
}

func (b *fakeBundle) Init(ctx context.Context) error { return nil }

func (b *fakeBundle) Filter(ctx context.Context, addr string) (connector.FilterResponse, error) {
	return b.filterResp, nil
}

func (b *fakeBundle) Unbundle(ctx context.Context, addr string, resource []byte) ([]Element, error) {
	return b.elements, nil
}

func (b *fakeBundle) GetSkeletons(ctx context.Context) ([]connector.SkeletonOutput, error) {
	return nil, nil
}

func (b *fakeBundle) GetDocstring(ctx context.Context, addr string, ident connector.DocIdent) (*connector.GetDocOutput, error) {
	return nil, nil
}

func (b *fakeBundle) Eq(ctx context.Context, addr string, a, bb []byte) (bool, error) {
	return string(a) == string(bb), nil
}

func (b *fakeBundle) Diag(ctx context.Context, addr string, body []byte) (*connector.DiagnosticResponse, error) {
	return nil, nil
}

func TestAsConnectorOpExecIsFixedNoop(t *testing.T) {
	ctx := context.Background()
	conn := AsConnector(&fakeBundle{filterResp: connector.FilterBundle})

	out, err := conn.OpExec(ctx, "terraform.tfstate", "create")
	require.NoError(t, err)
	assert.Equal(t, "Bundle: No-op!", out.FriendlyMessage)
}

func TestAsConnectorAddrVirtToPhyIsPassthrough(t *testing.T) {
	ctx := context.Background()
	conn := AsConnector(&fakeBundle{})

	res, err := conn.AddrVirtToPhy(ctx, "terraform.tfstate")
	require.NoError(t, err)
	assert.Equal(t, connector.VirtToPhyPresent, res.Kind)
	assert.Equal(t, "terraform.tfstate", res.Phy)

	virt, ok, err := conn.AddrPhyToVirt(ctx, "terraform.tfstate")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "terraform.tfstate", virt)
}

func TestAsConnectorListAndGetAndPlanAreEmpty(t *testing.T) {
	ctx := context.Background()
	conn := AsConnector(&fakeBundle{})

	list, err := conn.List(ctx, "")
	require.NoError(t, err)
	assert.Nil(t, list)

	out, err := conn.Get(ctx, "anything")
	require.NoError(t, err)
	assert.Nil(t, out)

	ops, err := conn.Plan(ctx, "anything", nil, nil)
	require.NoError(t, err)
	assert.Nil(t, ops)
}

func TestAsConnectorDelegatesFilterAndUnbundle(t *testing.T) {
	ctx := context.Background()
	elements := []Element{{Filename: "vpc/main.ron", Contents: []byte("resource body")}}
	conn := AsConnector(&fakeBundle{filterResp: connector.FilterBundle, elements: elements})

	resp, err := conn.Filter(ctx, "terraform.tfstate")
	require.NoError(t, err)
	assert.Equal(t, connector.FilterBundle, resp)

	got, err := conn.Unbundle(ctx, "terraform.tfstate", []byte("tfstate bytes"))
	require.NoError(t, err)
	assert.Equal(t, elements, got)
}

func TestMaterializeWritesElementsBesideBundle(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "aws/terraform.tfstate", []byte("tfstate bytes"), 0o644))

	b := &fakeBundle{elements: []Element{
		{Filename: "vpc/main.ron", Contents: []byte("vpc body")},
		{Filename: "subnet/a.ron", Contents: []byte("subnet body")},
	}}

	written, err := Materialize(ctx, fs, b, "terraform.tfstate", "aws/terraform.tfstate")
	require.NoError(t, err)
	assert.Len(t, written, 2)

	content, err := afero.ReadFile(fs, "aws/vpc/main.ron")
	require.NoError(t, err)
	assert.Equal(t, "vpc body", string(content))
}
