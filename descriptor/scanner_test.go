package descriptor_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/netwrix/iworkcore/descriptor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/testing/protocmp"
	"google.golang.org/protobuf/types/descriptorpb"
)

func strPtr(s string) *string { return &s }
func i32Ptr(n int32) *int32   { return &n }

func buildFileDescriptor(name string, deps []string) *descriptorpb.FileDescriptorProto {
	return &descriptorpb.FileDescriptorProto{
		Name:       strPtr(name),
		Dependency: deps,
		Syntax:     strPtr("proto2"),
		MessageType: []*descriptorpb.DescriptorProto{
			{
				Name: strPtr("Thing"),
				Field: []*descriptorpb.FieldDescriptorProto{
					{
						Name:   strPtr("id"),
						Number: i32Ptr(1),
						Label:  descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL.Enum(),
						Type:   descriptorpb.FieldDescriptorProto_TYPE_INT32.Enum(),
					},
				},
			},
		},
	}
}

func TestScanFindsEmbeddedDescriptor(t *testing.T) {
	fd := buildFileDescriptor("a.proto", nil)
	raw, err := proto.Marshal(fd)
	require.NoError(t, err)

	var data []byte
	data = append(data, []byte("junk before\x00\x01\x02")...)
	data = append(data, raw...)
	data = append(data, []byte("junk after")...)

	files, err := descriptor.Scan(data, nil)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "a.proto", files[0].Path)
	assert.Equal(t, "Thing", files[0].Descriptor.GetMessageType()[0].GetName())

	// The scanned-and-reparsed descriptor must be structurally identical
	// to the one that was embedded, not just share a name.
	if diff := cmp.Diff(fd, files[0].Descriptor, protocmp.Transform()); diff != "" {
		t.Errorf("recovered descriptor differs from the embedded one (-want +got):\n%s", diff)
	}
}

func TestScanIgnoresUnrelatedProtoSubstring(t *testing.T) {
	data := []byte("this mentions .proto but is not a descriptor at all")
	_, err := descriptor.Scan(data, nil)
	require.Error(t, err)
	var notFound descriptor.NoDescriptorsFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestScanSkipsDescriptorProtoItself(t *testing.T) {
	fd := buildFileDescriptor("google/protobuf/descriptor.proto", nil)
	raw, err := proto.Marshal(fd)
	require.NoError(t, err)

	_, err = descriptor.Scan(raw, nil)
	require.Error(t, err)
	var notFound descriptor.NoDescriptorsFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestScanFindsMultipleDescriptorsWithDependencyEdges(t *testing.T) {
	a := buildFileDescriptor("a.proto", nil)
	b := buildFileDescriptor("b.proto", []string{"a.proto"})

	rawA, err := proto.Marshal(a)
	require.NoError(t, err)
	rawB, err := proto.Marshal(b)
	require.NoError(t, err)

	var data []byte
	data = append(data, rawB...)
	data = append(data, []byte("----")...)
	data = append(data, rawA...)

	files, err := descriptor.Scan(data, nil)
	require.NoError(t, err)
	require.Len(t, files, 2)

	byPath := map[string]*descriptor.ProtoFile{}
	for _, f := range files {
		byPath[f.Path] = f
	}
	require.Contains(t, byPath, "a.proto")
	require.Contains(t, byPath, "b.proto")
	assert.Equal(t, []string{"a.proto"}, byPath["b.proto"].Dependencies)
}
