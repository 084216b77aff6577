package mpxfer

import "fmt"

// PartCount returns the number of fixed-size parts a payload of
// sourceSize bytes splits into. Every upload has at least one part so
// empty and sub-part-size files still run through the same multi-part
// protocol.
func PartCount(sourceSize, partSize int64) int64 {
	validatePartArgs(sourceSize, partSize)
	if sourceSize == 0 {
		return 1
	}
	return (sourceSize + partSize - 1) / partSize
}

// PartRange returns the half-open byte range [start, end) of the
// 1-indexed part. The final part is clamped at sourceSize.
func PartRange(partNumber, partSize, sourceSize int64) (start, end int64) {
	validatePartArgs(sourceSize, partSize)
	if partNumber < 1 {
		panic(fmt.Sprintf("mpxfer: part number must be positive, got %d", partNumber))
	}
	start = (partNumber - 1) * partSize
	if start > sourceSize {
		start = sourceSize
	}
	end = start + partSize
	if end > sourceSize {
		end = sourceSize
	}
	return
}

// validatePartArgs panics on inputs no caller may legitimately produce.
func validatePartArgs(sourceSize, partSize int64) {
	if partSize <= 0 {
		panic(fmt.Sprintf("mpxfer: part size must be positive, got %d", partSize))
	}
	if sourceSize < 0 {
		panic(fmt.Sprintf("mpxfer: source size must not be negative, got %d", sourceSize))
	}
}
