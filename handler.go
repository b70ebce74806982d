package gomxf

import (
	"fmt"
	"io"
	"strings"
)

func keyString(bs []byte) string {
	ks := make([]string, 0)
	for _, b := range bs {
		ks = append(ks, fmt.Sprintf("%02x", b))
	}
	return strings.Join(ks, ".")
}

type Config struct {
	NRead       int  `yaml:"n_read" json:"n_read"`
	ShowUnKnown bool `yaml:"show_unknown" json:"show_unknown"`
	ShowFill    bool `yaml:"show_fill" json:"show_fill"`
	ROI         int  `yaml:"roi" json:"roi"`
	ShowRaw     bool `yaml:"show_raw" json:"show_raw"`
	AsSets      bool `yaml:"as_sets" json:"as_sets"`
	// Index, when >= 0, switches View into lookup mode: report the byte
	// location of edit unit Index instead of dumping KLVs.
	Index   int64 `yaml:"index" json:"index"`
	SubItem int   `yaml:"sub_item" json:"sub_item"`
	Reorder bool  `yaml:"reorder" json:"reorder"`
}

func show(i int, k *KLV, d KLVData, cfg *Config) {
	if d.Known() {
		if d.IsFill() {
			if cfg.ShowFill {
				fmt.Printf("klv#%d Fill Item with size %d\n", i, k.Size())
			}
		} else {
			fmt.Printf("klv#%d @%d with size %d: data-len: %d @%d\n== %s\n",
				i, k.At, k.Size(), k.Length, k.ValueStart, d.View())
		}
	} else {
		if cfg.ShowUnKnown {
			fmt.Printf("klv#%d @%d with size %d: unknown key %s\n",
				i, k.At, k.Size(), keyString(k.Key))
		}
	}
}

func getLine(bs []byte) string {
	ret := make([]string, 0)
	for _, b := range bs {
		ret = append(ret, fmt.Sprintf("0x%02x,", b))
	}
	return strings.Join(ret, " ")
}

func showKLV(r io.ReaderAt, k *KLV, l int, cfg *Config) error {
	fmt.Printf("klv @%d with size %d: data-len: %d @%d\n\n",
		k.At, k.Size(), k.Length, k.ValueStart)

	if !(cfg.ShowRaw || cfg.AsSets) {
		return nil
	}

	bs, err := readData(r, k)
	if err != nil {
		return err
	}

	if cfg.ShowRaw {
		n := len(bs)
		i := 0
		fmt.Println("== data: []byte{")
		for {
			next := i + l
			if next > n {
				next = n
			}
			fmt.Println(getLine(bs[i:next]))
			if next == n {
				break
			}
			i = next
			// line := bs[i:next]
		}
		fmt.Println("}")
	}

	if cfg.AsSets {
		fmt.Println("== Local Sets:")
		sets, err := ParseLocalSets(bs, 2)
		if err != nil {
			return err
		}
		for _, s := range sets {
			fmt.Println(s.View())
		}
	}

	return nil
}

// showLookup collects every IndexTableSegment KLV in ks into one IndexTable
// and reports the result of looking up cfg.Index.
func showLookup(r io.ReaderAt, ks KLVs, cfg *Config) error {
	t := NewIndexTable()
	for _, k := range ks {
		if !isIndexTable(k.Key) {
			continue
		}
		raw, err := readData(r, k)
		if err != nil {
			return err
		}
		if _, err := t.AddSegmentFromBytes(raw, 2); err != nil {
			return err
		}
	}

	pos := t.Lookup(cfg.Index, cfg.SubItem, cfg.Reorder)
	fmt.Printf("lookup(%d, sub_item=%d, reorder=%t) = %+v\n", cfg.Index, cfg.SubItem, cfg.Reorder, pos)
	return nil
}

// View ...
func View(filename string, cfg *Config) error {
	r, err := NewReader(filename)
	if err != nil {
		return err
	}

	ks, err := r.Read(cfg.NRead)
	if err != nil {
		return err
	}

	if cfg.ROI >= 0 {
		return showKLV(r.r, ks[cfg.ROI], 8, cfg)
	}

	if cfg.Index >= 0 {
		return showLookup(r.r, ks, cfg)
	}

	ds, err := Decode4View(r.r, ks)
	if err != nil {
		return err
	}

	for i, d := range ds {
		show(i, ks[i], d, cfg)
	}

	return nil
}
