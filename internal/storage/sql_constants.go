package storage

// SQL statements for the AM_API_MINHASH table. Placeholders follow the
// database/sql '?' convention used by the wired drivers.
const (
	insertSignatureSQL = "INSERT INTO AM_API_MINHASH (API_UUID, SIGNATURE_BLOB, ORGANIZATION, CREATED_TIME, UPDATED_TIME) " +
		"VALUES (?, ?, ?, ?, ?)"

	updateSignatureSQL = "UPDATE AM_API_MINHASH SET SIGNATURE_BLOB = ?, UPDATED_TIME = ? " +
		"WHERE API_UUID = ? AND ORGANIZATION = ?"

	getSignatureSQL = "SELECT API_UUID, SIGNATURE_BLOB, ORGANIZATION " +
		"FROM AM_API_MINHASH WHERE API_UUID = ? AND ORGANIZATION = ?"

	getAllSignaturesByOrgSQL = "SELECT API_UUID, SIGNATURE_BLOB, ORGANIZATION " +
		"FROM AM_API_MINHASH WHERE ORGANIZATION = ?"

	getAllSignaturesSQL = "SELECT API_UUID, SIGNATURE_BLOB, ORGANIZATION " +
		"FROM AM_API_MINHASH"

	deleteSignatureSQL = "DELETE FROM AM_API_MINHASH WHERE API_UUID = ? AND ORGANIZATION = ?"

	checkSignatureExistsSQL = "SELECT 1 FROM AM_API_MINHASH WHERE API_UUID = ? AND ORGANIZATION = ?"

	deleteAllSignaturesByOrgSQL = "DELETE FROM AM_API_MINHASH WHERE ORGANIZATION = ?"
)
