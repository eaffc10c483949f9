package ndn

// Data is a signed, named packet. The signed portion - the contiguous byte
// range a signer hashes - spans from the first child of Data through the end
// of SignatureInfo; a decoder reports that range's begin/end offsets
// alongside the parsed object (see wire.DecodeData).
type Data struct {
	Name          Name
	MetaInfo      MetaInfo
	Content       []byte
	SignatureInfo SignatureInfo

	SignatureValue []byte
}

// NewData returns a Data with a default (BLOB, no freshness) MetaInfo.
func NewData(name Name) Data {
	return Data{
		Name: name,
		MetaInfo: MetaInfo{
			ContentType:       ContentTypeBlob,
			FreshnessPeriodMs: -1,
		},
	}
}
