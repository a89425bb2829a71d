package objstore

import "testing"

func TestParseURL(t *testing.T) {
	for _, tc := range []struct {
		in         string
		wantBucket string
		wantKey    string
		wantErr    bool
	}{
		{"s3://dumps/RC_2023-01.zst", "dumps", "RC_2023-01.zst", false},
		{"s3://dumps/reddit/comments/RC_2023-01.zst", "dumps", "reddit/comments/RC_2023-01.zst", false},
		{"s3://dumps", "", "", true},
		{"s3://dumps/", "", "", true},
		{"s3:///key", "", "", true},
		{"/tmp/RC_2023-01.zst", "", "", true},
	} {
		bucket, key, err := ParseURL(tc.in)
		if (err != nil) != tc.wantErr {
			t.Errorf("ParseURL(%q) error = %v, wantErr %v", tc.in, err, tc.wantErr)
			continue
		}
		if bucket != tc.wantBucket || key != tc.wantKey {
			t.Errorf("ParseURL(%q) = (%q, %q), want (%q, %q)", tc.in, bucket, key, tc.wantBucket, tc.wantKey)
		}
	}
}

func TestIsURL(t *testing.T) {
	if !IsURL("s3://b/k") || IsURL("b/k") || IsURL("-") {
		t.Error("IsURL misclassified a location")
	}
}
