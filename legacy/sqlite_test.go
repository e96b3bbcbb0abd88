package legacy_test

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/netwrix/iworkcore/iwa"
	"github.com/netwrix/iworkcore/legacy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/dynamicpb"

	_ "github.com/mattn/go-sqlite3"
)

func seedDatabase(t *testing.T, path string) {
	t.Helper()
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`
		create table dataStates (identifier integer primary key, state blob);
		create table objects (identifier integer primary key, class integer, state integer references dataStates(identifier));
		insert into dataStates (identifier, state) values (1, x'01'), (2, x'02');
		insert into objects (identifier, class, state) values (100, 42, 1), (101, 42, 2);
	`)
	require.NoError(t, err)
}

type rawBytesRegistry struct{}

func (rawBytesRegistry) Decode(kind iwa.Kind, typeTag uint32, payload []byte) (proto.Message, bool) {
	if typeTag != 42 {
		return nil, false
	}
	fdProto := &descriptorpb.FileDescriptorProto{
		Name:   proto.String("legacy_test_record.proto"),
		Syntax: proto.String("proto3"),
		MessageType: []*descriptorpb.DescriptorProto{{
			Name: proto.String("Row"),
			Field: []*descriptorpb.FieldDescriptorProto{{
				Name:   proto.String("data"),
				Number: proto.Int32(1),
				Label:  descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL.Enum(),
				Type:   descriptorpb.FieldDescriptorProto_TYPE_BYTES.Enum(),
			}},
		}},
	}
	fd, err := protodesc.NewFile(fdProto, new(protoregistry.Files))
	if err != nil {
		return nil, false
	}
	desc := fd.Messages().Get(0)
	m := dynamicpb.NewMessage(desc)
	m.Set(desc.Fields().ByName("data"), protoreflect.ValueOfBytes(payload))
	return m, true
}

func TestSQLiteContainerTypeTags(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "index.db")
	seedDatabase(t, path)

	c, err := legacy.OpenSQLiteContainer(path)
	require.NoError(t, err)
	defer c.Close()

	tags, err := c.TypeTags()
	require.NoError(t, err)
	assert.Equal(t, map[uint32]bool{42: true}, tags)
}

func TestSQLiteContainerLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "index.db")
	seedDatabase(t, path)

	c, err := legacy.OpenSQLiteContainer(path)
	require.NoError(t, err)
	defer c.Close()

	records, err := c.Load(iwa.KindPages, rawBytesRegistry{}, nil)
	require.NoError(t, err)
	assert.Len(t, records, 2)
	assert.Contains(t, records, uint64(100))
	assert.Contains(t, records, uint64(101))
}
