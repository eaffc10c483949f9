package wire

import (
	"github.com/ndnsync/ndnsync/internal/ndn"
	"github.com/ndnsync/ndnsync/internal/tlv"
)

// EncodeData encodes a Data packet per the backward-building sequence:
// SignatureValue, SignatureInfo, Content, MetaInfo, Name, then the outer
// header. signedBegin/signedEnd are offsets into the returned bytes
// bracketing Name||MetaInfo||Content||SignatureInfo - the range a signer
// hashes.
func EncodeData(data ndn.Data) (encoded []byte, signedBegin int, signedEnd int) {
	e := tlv.NewEncoder(256)

	e.WriteBlobTlv(TypeSignatureValue, data.SignatureValue)
	endMark := e.Mark()

	writeSignatureInfo(e, data.SignatureInfo)
	e.WriteBlobTlv(TypeContent, data.Content)
	writeMetaInfo(e, data.MetaInfo)
	writeName(e, data.Name)
	beginMark := e.Mark()

	e.WriteTypeAndLength(TypeData, uint64(e.Length()))

	encoded = e.Finish()
	total := len(encoded)
	return encoded, total - beginMark, total - endMark
}

// DecodeData decodes a Data packet, returning it alongside the signed-portion
// offsets (see EncodeData).
func DecodeData(input []byte) (data ndn.Data, signedBegin int, signedEnd int, err error) {
	d := tlv.NewDecoder(input)
	end, err := d.ReadNestedTlvsStart(TypeData)
	if err != nil {
		return ndn.Data{}, 0, 0, err
	}
	signedBegin = d.Offset

	name, err := readName(d)
	if err != nil {
		return ndn.Data{}, 0, 0, err
	}

	metaInfo, err := readMetaInfo(d)
	if err != nil {
		return ndn.Data{}, 0, 0, err
	}

	content, _, err := d.ReadOptionalBlobTlv(TypeContent, end)
	if err != nil {
		return ndn.Data{}, 0, 0, err
	}
	var contentCopy []byte
	if content != nil {
		contentCopy = append([]byte(nil), content...)
	}

	sigInfo, err := readSignatureInfo(d)
	if err != nil {
		return ndn.Data{}, 0, 0, err
	}
	signedEnd = d.Offset

	sigValue, err := d.ReadBlobTlvCopy(TypeSignatureValue)
	if err != nil {
		return ndn.Data{}, 0, 0, err
	}

	if err := d.FinishNestedTlvs(end); err != nil {
		return ndn.Data{}, 0, 0, err
	}

	data = ndn.Data{
		Name:           name,
		MetaInfo:       metaInfo,
		Content:        contentCopy,
		SignatureInfo:  sigInfo,
		SignatureValue: sigValue,
	}
	return data, signedBegin, signedEnd, nil
}
