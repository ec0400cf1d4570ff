package parquet

// PartitionMetadata carries the row groups one partition owns, so a
// consumer that already has FileMetadata can read a partition without
// re-deriving which indices belong to it.
type PartitionMetadata struct {
	RowGroupIndices []int
}

// FilePartition is one contiguous, independently-readable slice of a file
// for distributed consumption (see internal/objectstore). StartOffset/
// Length span exactly the assigned row groups' on-disk bytes, so a caller
// can range-read just this slice from remote storage without touching the
// footer again.
type FilePartition struct {
	Index       int
	FilePath    string
	StartOffset uint64
	Length      uint64
	Metadata    PartitionMetadata
}

// CreatePartitions distributes a file's row groups across target
// partitions as evenly as possible, with any remainder assigned to the
// lowest-indexed partitions. target must be >= 1 and meta must have at
// least one row group; an empty result (not an error) is returned for a
// file with zero row groups.
func CreatePartitions(filePath string, meta FileMetadata, target int) []FilePartition {
	n := len(meta.RowGroups)
	if n == 0 || target <= 0 {
		return nil
	}
	if target > n {
		target = n
	}

	base := n / target
	remainder := n % target

	partitions := make([]FilePartition, 0, target)
	rgIdx := 0
	for p := 0; p < target; p++ {
		count := base
		if p < remainder {
			count++
		}
		if count == 0 {
			continue
		}
		indices := make([]int, count)
		start := meta.RowGroups[rgIdx].ByteOffset
		var length uint64
		for i := 0; i < count; i++ {
			indices[i] = rgIdx
			length += meta.RowGroups[rgIdx].ByteLength
			rgIdx++
		}
		partitions = append(partitions, FilePartition{
			Index:       p,
			FilePath:    filePath,
			StartOffset: start,
			Length:      length,
			Metadata:    PartitionMetadata{RowGroupIndices: indices},
		})
	}
	return partitions
}

// ReadPartition reads exactly the row groups partition.Metadata names,
// projecting to columns (nil means all columns).
func (r *Reader) ReadPartition(partition FilePartition, columns []string) ([]map[string]any, error) {
	return r.ReadRowGroups(partition.Metadata.RowGroupIndices, columns)
}
