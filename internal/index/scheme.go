package index

var (
	bMeta    = []byte("meta")     // slug -> article json
	bIdxDate = []byte("idx_date") // invDate + 0x00 + slug
	bIdxTag  = []byte("idx_tag")  // lower(tag) -> sub-bucket of date keys
	bTagName = []byte("tag_name") // lower(tag) -> display name
	bRender  = []byte("render")   // slug -> cached render json
	bSchema  = []byte("schema")   // "version" -> schemaVersion
)

// schemaVersion changes whenever a bucket layout or value encoding changes.
// An index written under another version is wiped on Open.
const schemaVersion = "kumo-2"

var keyVersion = []byte("version")

func allBuckets() [][]byte {
	return [][]byte{bMeta, bIdxDate, bIdxTag, bTagName, bRender}
}
