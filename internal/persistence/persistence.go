package persistence

// Persistence bundles the two store interfaces so the engines can depend
// on a single abstraction.
type Persistence struct {
	Assets  AssetStore
	Records RecordStore
}
