package modepage

import "testing"

func TestNewStoreHasAllPages(t *testing.T) {
	s := NewStore(MediumKindCD)
	want := []Code{ErrorRecovery, CDDeviceParams, CDAudioControl, PowerCondition, Capabilities}
	got := s.Codes()
	if len(got) != len(want) {
		t.Fatalf("Codes() = %v, want %v", got, want)
	}
	for i, c := range want {
		if got[i] != c {
			t.Errorf("Codes()[%d] = %#02x, want %#02x", i, got[i], c)
		}
	}
}

func TestSenseUnknownPage(t *testing.T) {
	s := NewStore(MediumKindCD)
	if _, err := s.Sense(0x7F, PCCurrent); err == nil {
		t.Fatal("expected ErrUnknownPage")
	}
}

func TestSenseDefaultMatchesCurrentAtStartup(t *testing.T) {
	s := NewStore(MediumKindCD)
	cur, err := s.Sense(ErrorRecovery, PCCurrent)
	if err != nil {
		t.Fatalf("Sense(current): %v", err)
	}
	def, err := s.Sense(ErrorRecovery, PCDefault)
	if err != nil {
		t.Fatalf("Sense(default): %v", err)
	}
	if string(cur) != string(def) {
		t.Fatal("current should equal default before any MODE SELECT")
	}
}

func TestSelectRejectsWrongLength(t *testing.T) {
	s := NewStore(MediumKindCD)
	if err := s.Select(ErrorRecovery, []byte{0x01, 0x02}); err == nil {
		t.Fatal("expected ErrInvalidParameterList for short page")
	}
}

func TestSelectHonorsMask(t *testing.T) {
	s := NewStore(MediumKindCD)
	cur, err := s.Sense(CDAudioControl, PCCurrent)
	if err != nil {
		t.Fatalf("Sense: %v", err)
	}
	proposed := append([]byte(nil), cur...)
	proposed[9] = 0x20  // port0 volume: within mask, should apply
	proposed[0] = 0x7F  // code byte: outside mask, should be ignored

	if err := s.Select(CDAudioControl, proposed); err != nil {
		t.Fatalf("Select: %v", err)
	}
	got, _ := s.Sense(CDAudioControl, PCCurrent)
	if got[9] != 0x20 {
		t.Errorf("port0 volume = %#02x, want 0x20", got[9])
	}
	if got[0] != byte(CDAudioControl) {
		t.Errorf("code byte = %#02x, want unchanged %#02x", got[0], CDAudioControl)
	}
}

func TestCapabilitiesPageReflectsMedium(t *testing.T) {
	cd := NewStore(MediumKindCD)
	dvd := NewStore(MediumKindDVD)

	cdCaps, _ := cd.Sense(Capabilities, PCCurrent)
	dvdCaps, _ := dvd.Sense(Capabilities, PCCurrent)

	if cdCaps[2]&0x08 != 0 {
		t.Error("CD-kind capabilities page should not advertise dvdrom_read")
	}
	if dvdCaps[2]&0x08 == 0 {
		t.Error("DVD-kind capabilities page should advertise dvdrom_read")
	}
}

func TestGetSetBit(t *testing.T) {
	var b byte
	SetBit(&b, 3, true)
	if !GetBit(b, 3) {
		t.Fatal("expected bit 3 set")
	}
	SetBit(&b, 3, false)
	if GetBit(b, 3) {
		t.Fatal("expected bit 3 clear")
	}
}
