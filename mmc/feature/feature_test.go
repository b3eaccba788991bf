package feature

import "testing"

func TestNewTableStartsInProfileNone(t *testing.T) {
	tbl := NewTable()
	if tbl.CurrentProfile() != ProfileNone {
		t.Fatalf("CurrentProfile = %v, want ProfileNone", tbl.CurrentProfile())
	}
	f, ok := tbl.Get(Core)
	if !ok || !f.Current {
		t.Fatal("Core feature should be persistent and current from the start")
	}
}

func TestSetProfileCDROM(t *testing.T) {
	tbl := NewTable()
	tbl.SetProfile(ProfileCDROM)

	for _, code := range []Code{RandomReadable, MultiRead, CDRead, CDExternalAudio, RealTimeStreaming} {
		f, ok := tbl.Get(code)
		if !ok || !f.Current {
			t.Errorf("feature %#04x should be current under CDROM profile", code)
		}
	}
	if f, _ := tbl.Get(DVDRead); f.Current {
		t.Error("DVDRead should not be current under CDROM profile")
	}
}

func TestSetProfileDVDROMClearsOldCurrent(t *testing.T) {
	tbl := NewTable()
	tbl.SetProfile(ProfileCDROM)
	tbl.SetProfile(ProfileDVDROM)

	if f, _ := tbl.Get(CDRead); f.Current {
		t.Error("CDRead should not remain current after switching to DVDROM")
	}
	if f, _ := tbl.Get(DVDRead); !f.Current {
		t.Error("DVDRead should be current under DVDROM profile")
	}
	// Persistent features survive every transition.
	if f, _ := tbl.Get(Core); !f.Current {
		t.Error("Core (persistent) should remain current across transitions")
	}
}

func TestProfileListPayloadReflectsCurrent(t *testing.T) {
	tbl := NewTable()
	tbl.SetProfile(ProfileDVDROM)
	f, _ := tbl.Get(ProfileList)
	if len(f.Payload) != 8 {
		t.Fatalf("payload len = %d, want 8", len(f.Payload))
	}
	// Second descriptor is DVDROM (0x0010); its current byte must be 1.
	if f.Payload[6] != 0x01 {
		t.Errorf("DVDROM current byte = %d, want 1", f.Payload[6])
	}
	if f.Payload[2] != 0x00 {
		t.Errorf("CDROM current byte = %d, want 0", f.Payload[2])
	}
}

func TestSelectRT2ReturnsSingleFeature(t *testing.T) {
	tbl := NewTable()
	got := tbl.Select(2, CDRead)
	if len(got) != 1 || got[0].Code != CDRead {
		t.Fatalf("Select(RT=2, CDRead) = %+v", got)
	}
}

func TestSelectRT1OnlyCurrent(t *testing.T) {
	tbl := NewTable()
	tbl.SetProfile(ProfileCDROM)
	got := tbl.Select(1, 0)
	for _, f := range got {
		if !f.Current {
			t.Errorf("Select(RT=1) returned non-current feature %#04x", f.Code)
		}
	}
	if len(got) == 0 {
		t.Fatal("expected at least one current feature")
	}
}
