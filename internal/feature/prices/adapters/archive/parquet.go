package archive

import (
	"bytes"
	"fmt"

	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/source"
	"github.com/xitongsys/parquet-go/writer"

	"fintrade/internal/feature/prices/domain/entity"
)

// priceRow is the parquet layout of one observation.
type priceRow struct {
	Symbol    string  `parquet:"name=symbol, type=BYTE_ARRAY, convertedtype=UTF8"`
	PriceDate int32   `parquet:"name=price_date, type=INT32, convertedtype=DATE"`
	Open      float64 `parquet:"name=open_price, type=DOUBLE"`
	High      float64 `parquet:"name=high_price, type=DOUBLE"`
	Low       float64 `parquet:"name=low_price, type=DOUBLE"`
	Close     float64 `parquet:"name=close_price, type=DOUBLE"`
	Volume    int64   `parquet:"name=volume, type=INT64"`
}

// memFile is a write-only in-memory parquet sink.
type memFile struct {
	buffer *bytes.Buffer
}

func newMemFile() *memFile {
	return &memFile{buffer: &bytes.Buffer{}}
}

func (m *memFile) Create(string) (source.ParquetFile, error) { return m, nil }
func (m *memFile) Open(string) (source.ParquetFile, error)   { return m, nil }
func (m *memFile) Seek(int64, int) (int64, error)            { return int64(m.buffer.Len()), nil }
func (m *memFile) Read([]byte) (int, error)                  { return 0, fmt.Errorf("read not supported") }
func (m *memFile) Write(b []byte) (int, error)               { return m.buffer.Write(b) }
func (m *memFile) Close() error                              { return nil }
func (m *memFile) Bytes() []byte                             { return m.buffer.Bytes() }

// encodeParquet renders observations as a snappy-compressed parquet file.
func encodeParquet(observations []entity.Observation) ([]byte, error) {
	mem := newMemFile()
	pw, err := writer.NewParquetWriter(mem, new(priceRow), 1)
	if err != nil {
		return nil, fmt.Errorf("new parquet writer: %w", err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for _, o := range observations {
		row := priceRow{
			Symbol:    o.Symbol,
			PriceDate: int32(o.Date.Unix() / 86400),
			Open:      o.Open,
			High:      o.High,
			Low:       o.Low,
			Close:     o.Close,
			Volume:    o.Volume,
		}
		if err := pw.Write(row); err != nil {
			_ = pw.WriteStop()
			return nil, fmt.Errorf("write parquet record: %w", err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		return nil, fmt.Errorf("finalize parquet: %w", err)
	}
	return mem.Bytes(), nil
}
